// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
	"time"
)

// Provider は外部IdPの種別を表す。
type Provider string

const (
	// ProviderNaver はネイバーログインを示す。
	ProviderNaver Provider = "NAVER"
	// ProviderKakao はカカオログインを示す。
	ProviderKakao Provider = "KAKAO"
)

// Domain はプロバイダーのメールドメインを返す。
// プロバイダーがメールアドレスを返さない場合のフォールバック生成に使用する。
func (p Provider) Domain() string {
	switch p {
	case ProviderNaver:
		return "naver.com"
	case ProviderKakao:
		return "kakao.com"
	default:
		return "example.com"
	}
}

// DisplayName は "Naver" のような表示名を返す。
func (p Provider) DisplayName() string {
	s := strings.ToLower(string(p))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ExternalIdentity は外部IdPが検証したユーザー識別情報を表す。
// 1回の認証交換の間だけ存在する一時的な値。
type ExternalIdentity struct {
	Provider   Provider
	ExternalID string
	Email      string
}

// AccountID はプロバイダースコープ付きの内部アカウントIDを導出する。
// 異なるプロバイダーが同じ外部IDを発行しても衝突しない。
func (i ExternalIdentity) AccountID() string {
	return strings.ToLower(string(i.Provider)) + ":" + i.ExternalID
}

// EmailOrFallback はメールアドレスを返す。
// プロバイダーがメールを提供しない場合は "<externalId>@<providerDomain>" を生成する。
func (i ExternalIdentity) EmailOrFallback() string {
	if i.Email != "" {
		return i.Email
	}
	return fmt.Sprintf("%s@%s", i.ExternalID, i.Provider.Domain())
}

// AccountStatus はアカウントの状態を表す。
type AccountStatus string

const (
	// AccountStatusPending はセッション確立前の仮アカウントを示す。
	// 保持期間を超過するとリーパーの削除対象になる。
	AccountStatusPending AccountStatus = "pending"
	// AccountStatusActive はセッション確立済みのアカウントを示す。
	AccountStatusActive AccountStatus = "active"
)

// Account はサービス利用アカウントを表す。
// IDは "<provider>:<externalId>" 形式で、外部IDから決定的に導出される。
type Account struct {
	ID        string
	Email     string
	Provider  Provider
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationPreference はユーザーごとのリマインダー通知設定を表す。
// daysはMon=bit0..Sun=bit6のビットマスク。
type NotificationPreference struct {
	ID          string
	AccountID   string
	DeviceToken string
	Hour        int
	Minute      int
	Days        int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DayEnabled は指定曜日インデックス（Mon=0..Sun=6）が有効かを返す。
func (p *NotificationPreference) DayEnabled(dayIndex int) bool {
	if dayIndex < 0 || dayIndex > 6 {
		return false
	}
	return p.Days&(1<<dayIndex) != 0
}
