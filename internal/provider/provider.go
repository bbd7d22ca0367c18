// Package provider は外部IdP（Naver, Kakao）との通信を提供する。
// トークン交換とプロフィール取得を含む。内部でのリトライは行わない
// （認可コードは消費済みの再送がプロバイダー側で失敗するため）。
package provider

import (
	"context"
	"fmt"

	"github.com/hitoshi/readlog/internal/model"
)

// Profile は外部IdPから取得したユーザープロフィールを表す。
type Profile struct {
	ExternalID string
	Email      string // プロバイダーが返さない場合は空
}

// Client は外部IdPクライアントのインターフェース。
type Client interface {
	// Name はプロバイダー種別を返す。
	Name() model.Provider
	// FetchProfile はアクセストークンでユーザープロフィールを取得する。
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// CodeExchanger は認可コード交換に対応するプロバイダーのインターフェース。
// Naverのみ実装する（Kakaoはクライアントがアクセストークンを直接渡す）。
type CodeExchanger interface {
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// UpstreamError は外部IdPの非2xx応答または不正なレスポンスを表す。
// StatusとBodyはサーバーサイドのログ専用であり、
// クライアントへのレスポンスに含めてはならない。
type UpstreamError struct {
	Provider model.Provider
	Status   int
	Body     string
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: status %d", e.Provider, e.Status)
}

// IsUpstreamError はエラーチェーンにUpstreamErrorが含まれるかを判定し、
// 含まれる場合はそれを返す。
func IsUpstreamError(err error) (*UpstreamError, bool) {
	for err != nil {
		if ue, ok := err.(*UpstreamError); ok {
			return ue, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
