package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresDirectory はPostgreSQLを使用したユーザーディレクトリ。
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory はPostgresDirectoryを生成する。
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// FindUser は指定IDのユーザーを取得する。見つからない場合は(nil, nil)を返す。
func (d *PostgresDirectory) FindUser(ctx context.Context, id string) (*User, error) {
	user := &User{}
	err := d.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, created_at FROM directory_users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find directory user: %w", err)
	}

	return user, nil
}

// CreateUser はユーザーを作成する。
// 一意制約違反はErrUserExistsに変換する（同時プロビジョニングの許容）。
func (d *PostgresDirectory) CreateUser(ctx context.Context, user *User) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO directory_users (id, email, display_name, created_at)
		 VALUES ($1, $2, $3, now())`,
		user.ID, user.Email, user.DisplayName,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create directory user: %w", err)
	}
	return nil
}

// DeleteUser は指定IDのユーザーを削除する。
// 存在しない場合はErrUserNotFoundを返す。
func (d *PostgresDirectory) DeleteUser(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM directory_users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete directory user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// compile-time interface check
var _ Directory = (*PostgresDirectory)(nil)
