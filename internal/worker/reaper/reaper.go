// Package reaper は未認証アカウントの自動削除ジョブを提供する。
// 保持期間（デフォルト24時間）を超過したpendingアカウントを
// ディレクトリとアカウントストアの両方から日次バッチで削除する。
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/readlog/internal/directory"
	"github.com/hitoshi/readlog/internal/repository"
)

// ReapRecorder はリープ件数のメトリクス記録インターフェース。
type ReapRecorder interface {
	RecordAccountsReaped(count int)
}

// Reaper は保持期間を超過したpendingアカウントの削除ジョブ。
// レコード単位のエラーは記録するだけでバッチ全体は中断しない。
// 両削除とも冪等に再実行できるため、at-least-onceかつ
// 重複実行があり得るスケジューリングの下でも安全。
type Reaper struct {
	accountRepo repository.AccountRepository
	dir         directory.Directory
	logger      *slog.Logger
	metrics     ReapRecorder
	Retention   time.Duration // pendingアカウントの保持期間（デフォルト: 24時間）
}

// NewReaper は新しいReaperを生成する。
func NewReaper(accountRepo repository.AccountRepository, dir directory.Directory, logger *slog.Logger, metrics ReapRecorder) *Reaper {
	return &Reaper{
		accountRepo: accountRepo,
		dir:         dir,
		logger:      logger,
		metrics:     metrics,
		Retention:   24 * time.Hour,
	}
}

// Start はティッカーでリーパーを定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Reaper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("アカウントリーパーを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("retention", j.Retention),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("リープサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("アカウントリーパーを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("リープサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は保持期間を超過したpendingアカウントを削除する。
// ディレクトリ側の削除を先に試み、失敗（既に削除済み等）しても
// アカウント行の削除は続行する（孤立レコードの回避）。
func (j *Reaper) RunOnce(ctx context.Context) error {
	start := time.Now()
	runID := uuid.New().String()

	cutoff := start.Add(-j.Retention)

	accounts, err := j.accountRepo.ListPendingBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("削除対象アカウントの取得に失敗しました",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return err
	}

	if len(accounts) == 0 {
		j.logger.Info("削除対象のアカウントはありません",
			slog.String("run_id", runID),
		)
		return nil
	}

	var deleted int
	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := j.dir.DeleteUser(ctx, account.ID); err != nil {
			if errors.Is(err, directory.ErrUserNotFound) {
				// 前回のクラッシュ等で既に削除済み。行の削除に進む。
				j.logger.Info("ディレクトリユーザーは既に削除されています",
					slog.String("run_id", runID),
					slog.String("account_id", account.ID),
				)
			} else {
				j.logger.Error("ディレクトリユーザーの削除に失敗しました",
					slog.String("run_id", runID),
					slog.String("account_id", account.ID),
					slog.String("error", err.Error()),
				)
			}
		}

		if err := j.accountRepo.DeleteByID(ctx, account.ID); err != nil {
			j.logger.Error("アカウント行の削除に失敗しました",
				slog.String("run_id", runID),
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		deleted++
	}

	if j.metrics != nil {
		j.metrics.RecordAccountsReaped(deleted)
	}

	duration := time.Since(start)
	j.logger.Info("リープサイクルが完了しました",
		slog.String("run_id", runID),
		slog.Int("target_count", len(accounts)),
		slog.Int("deleted_count", deleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
