// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/readlog/internal/model"
)

// AccountRepository はアカウントレコードの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// UpsertMerge はアカウントをマージセマンティクスで書き込む。
	// 存在しない場合はstatus=pendingで作成し、存在する場合は
	// email・provider・updated_atのみ上書きする（status、created_atは保持）。
	// 冪等であり、同時書き込みでも状態を壊さない。
	UpsertMerge(ctx context.Context, id, email string, provider model.Provider) error

	// MarkActive はアカウントをactive状態に遷移させる。
	MarkActive(ctx context.Context, id string) error

	// ListPendingBefore はstatus=pendingかつcreated_atがcutoffより古い
	// アカウントを取得する。リーパーの削除対象列挙に使用する。
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*model.Account, error)

	// DeleteByID は指定IDのアカウントを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// PreferenceRepository は通知設定の永続化インターフェース。
type PreferenceRepository interface {
	// FindByAccountID は指定アカウントの通知設定を取得する。
	// 見つからない場合はnilを返す。
	FindByAccountID(ctx context.Context, accountID string) (*model.NotificationPreference, error)

	// Upsert はアカウントごとに1件の通知設定を冪等にUPSERTする。
	Upsert(ctx context.Context, pref *model.NotificationPreference) (*model.NotificationPreference, error)

	// ListMatching は指定の時・分・曜日インデックス（Mon=0..Sun=6）に
	// 一致する通知設定を取得する。時・分は完全一致。
	ListMatching(ctx context.Context, hour, minute, dayIndex int) ([]*model.NotificationPreference, error)

	// DeleteByAccountID は指定アカウントの通知設定を削除する。
	DeleteByAccountID(ctx context.Context, accountID string) error
}
