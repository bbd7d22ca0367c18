// Package directory はユーザーディレクトリとカスタムトークンの発行を提供する。
// 元々マネージドサービスが担っていたユーザー台帳と署名付きクレデンシャルの
// 責務を、注入可能なコンポーネントとして実装する。
package directory

import (
	"context"
	"errors"
	"time"
)

// User はディレクトリ上のユーザーレコードを表す。
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// ErrUserExists は既に同一IDのユーザーが存在することを示す。
// 同時プロビジョニング時のcheck-then-act競合で発生し得るため、
// 呼び出し側は成功として扱ってよい。
var ErrUserExists = errors.New("directory: user already exists")

// ErrUserNotFound は削除対象のユーザーが存在しないことを示す。
var ErrUserNotFound = errors.New("directory: user not found")

// Directory はユーザーディレクトリの操作インターフェース。
type Directory interface {
	// FindUser は指定IDのユーザーを取得する。見つからない場合は(nil, nil)を返す。
	FindUser(ctx context.Context, id string) (*User, error)

	// CreateUser はユーザーを作成する。
	// 既に存在する場合はErrUserExistsを返す。
	CreateUser(ctx context.Context, user *User) error

	// DeleteUser は指定IDのユーザーを削除する。
	// 存在しない場合はErrUserNotFoundを返す。
	DeleteUser(ctx context.Context, id string) error
}
