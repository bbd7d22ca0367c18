package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/readlog/internal/model"
)

// PostgresPreferenceRepo はPostgreSQLを使用した通知設定リポジトリ。
type PostgresPreferenceRepo struct {
	db *sql.DB
}

// NewPostgresPreferenceRepo はPostgresPreferenceRepoを生成する。
func NewPostgresPreferenceRepo(db *sql.DB) *PostgresPreferenceRepo {
	return &PostgresPreferenceRepo{db: db}
}

// FindByAccountID は指定アカウントの通知設定を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresPreferenceRepo) FindByAccountID(ctx context.Context, accountID string) (*model.NotificationPreference, error) {
	pref := &model.NotificationPreference{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, device_token, hour, minute, days, created_at, updated_at
		 FROM notification_preferences WHERE account_id = $1`,
		accountID,
	).Scan(&pref.ID, &pref.AccountID, &pref.DeviceToken,
		&pref.Hour, &pref.Minute, &pref.Days, &pref.CreatedAt, &pref.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find preference: %w", err)
	}

	return pref, nil
}

// Upsert はアカウントごとに1件の通知設定を冪等にUPSERTする。
func (r *PostgresPreferenceRepo) Upsert(ctx context.Context, pref *model.NotificationPreference) (*model.NotificationPreference, error) {
	id := pref.ID
	if id == "" {
		id = uuid.New().String()
	}

	saved := &model.NotificationPreference{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO notification_preferences
		     (id, account_id, device_token, hour, minute, days, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (account_id) DO UPDATE
		 SET device_token = EXCLUDED.device_token,
		     hour = EXCLUDED.hour,
		     minute = EXCLUDED.minute,
		     days = EXCLUDED.days,
		     updated_at = now()
		 RETURNING id, account_id, device_token, hour, minute, days, created_at, updated_at`,
		id, pref.AccountID, pref.DeviceToken, pref.Hour, pref.Minute, pref.Days,
	).Scan(&saved.ID, &saved.AccountID, &saved.DeviceToken,
		&saved.Hour, &saved.Minute, &saved.Days, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert preference: %w", err)
	}

	return saved, nil
}

// ListMatching は指定の時・分・曜日インデックス（Mon=0..Sun=6）に
// 一致する通知設定を取得する。時・分は完全一致、曜日はビットマスク照合。
func (r *PostgresPreferenceRepo) ListMatching(ctx context.Context, hour, minute, dayIndex int) ([]*model.NotificationPreference, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, device_token, hour, minute, days, created_at, updated_at
		 FROM notification_preferences
		 WHERE hour = $1 AND minute = $2 AND (days & (1 << $3)) <> 0`,
		hour, minute, dayIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matching preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*model.NotificationPreference
	for rows.Next() {
		pref := &model.NotificationPreference{}
		if err := rows.Scan(&pref.ID, &pref.AccountID, &pref.DeviceToken,
			&pref.Hour, &pref.Minute, &pref.Days, &pref.CreatedAt, &pref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate preferences: %w", err)
	}

	return prefs, nil
}

// DeleteByAccountID は指定アカウントの通知設定を削除する。
func (r *PostgresPreferenceRepo) DeleteByAccountID(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notification_preferences WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PreferenceRepository = (*PostgresPreferenceRepo)(nil)
