package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/readlog/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, provider, status, created_at, updated_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.Email, &account.Provider, &account.Status,
		&account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return account, nil
}

// UpsertMerge はアカウントをマージセマンティクスで書き込む。
// 既存行ではemail・provider・updated_atのみ上書きし、
// statusとcreated_atは保持する。純粋なUPSERTなので同時実行でも安全。
func (r *PostgresAccountRepo) UpsertMerge(ctx context.Context, id, email string, provider model.Provider) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, provider, status, created_at, updated_at)
		 VALUES ($1, $2, $3, 'pending', now(), now())
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email,
		     provider = EXCLUDED.provider,
		     updated_at = now()`,
		id, email, string(provider),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// MarkActive はアカウントをactive状態に遷移させる。
func (r *PostgresAccountRepo) MarkActive(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status = 'active', updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark account active: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// ListPendingBefore はstatus=pendingかつcreated_atがcutoffより古い
// アカウントを取得する。
func (r *PostgresAccountRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, provider, status, created_at, updated_at
		 FROM accounts
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account := &model.Account{}
		if err := rows.Scan(&account.ID, &account.Email, &account.Provider,
			&account.Status, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// DeleteByID は指定IDのアカウントを削除する。
// 既に存在しない場合もエラーにしない（冪等な再削除を許容）。
func (r *PostgresAccountRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
