// Package notify はリマインダープッシュ通知のディスパッチジョブを提供する。
// 10分間隔のティックで現在のKST時刻と通知設定を照合し、
// 一致したデバイスへ並列にプッシュを送信する。
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/readlog/internal/push"
	"github.com/hitoshi/readlog/internal/repository"
)

// kstOffset は対象タイムゾーン（UTC+9）の固定オフセット。
// タイムゾーンデータベースには依存せず、UTC nowをオフセットして計算する。
const kstOffset = 9 * time.Hour

const (
	notificationTitle = "今日の読書リマインダー"
	notificationBody  = "読書の時間です。今日も1ページから始めましょう。"
)

// DispatchRecorder はプッシュ送信結果のメトリクス記録インターフェース。
type DispatchRecorder interface {
	RecordPushSent()
	RecordPushFailure()
}

// Dispatcher は通知設定と現在時刻を照合してプッシュを送信するジョブ。
// 時・分は完全一致で照合する（許容ウィンドウなし）。このため
// ティック間隔は設定APIが受け付ける分刻み（10分）を割り切る必要がある。
type Dispatcher struct {
	prefRepo       repository.PreferenceRepository
	sender         push.Sender
	logger         *slog.Logger
	metrics        DispatchRecorder
	maxConcurrency int
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値20を使用する。
func NewDispatcher(
	prefRepo repository.PreferenceRepository,
	sender push.Sender,
	logger *slog.Logger,
	metrics DispatchRecorder,
	maxConcurrency int,
) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 20
	}
	return &Dispatcher{
		prefRepo:       prefRepo,
		sender:         sender,
		logger:         logger,
		metrics:        metrics,
		maxConcurrency: maxConcurrency,
	}
}

// Start は壁時計のinterval境界ごとにディスパッチャを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
//
// ティックはプロセス起動時刻ではなく壁時計の境界に揃える。
// 保存される通知設定の分は10分刻みのため、境界から外れた
// 時刻で照合するとどの設定とも一致しない。
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	d.logger.Info("通知ディスパッチャを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", d.maxConcurrency),
	)

	for {
		next := nextTick(time.Now(), interval)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info("通知ディスパッチャを停止しました")
			return
		case <-timer.C:
			// タイマーの発火が境界からわずかに遅れても、
			// 照合には境界時刻そのものを使う。
			if err := d.RunOnce(ctx, next); err != nil {
				d.logger.Error("ディスパッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// nextTick はnowより後の直近のinterval境界（壁時計基準）を返す。
func nextTick(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}

// localClock はUTC時刻をKST（UTC+9）に変換し、
// 時・分・曜日インデックス（Mon=0..Sun=6）を返す。
func localClock(now time.Time) (hour, minute, dayIndex int) {
	local := now.UTC().Add(kstOffset)
	// time.WeekdayはSun=0なのでMon=0に回転する
	dayIndex = (int(local.Weekday()) + 6) % 7
	return local.Hour(), local.Minute(), dayIndex
}

// RunOnce は現在時刻に一致する通知設定を取得し、並列でプッシュを送信する。
// 全送信は独立に実行・待機され、個別の失敗が他の送信に影響しない。
// 同じデバイストークンを持つ設定が複数一致した場合はその数だけ送信する。
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) error {
	start := time.Now()
	runID := uuid.New().String()

	hour, minute, dayIndex := localClock(now)

	prefs, err := d.prefRepo.ListMatching(ctx, hour, minute, dayIndex)
	if err != nil {
		d.logger.Error("通知設定の照合に失敗しました",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return err
	}

	if len(prefs) == 0 {
		return nil
	}

	d.logger.Info("ディスパッチサイクルを開始します",
		slog.String("run_id", runID),
		slog.Int("match_count", len(prefs)),
		slog.Int("hour", hour),
		slog.Int("minute", minute),
		slog.Int("day_index", dayIndex),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, d.maxConcurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var sent, failed int

	for _, pref := range prefs {
		wg.Add(1)
		sem <- struct{}{}

		go func(token, prefID string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := d.sender.Send(ctx, push.Message{
				Token: token,
				Title: notificationTitle,
				Body:  notificationBody,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if d.metrics != nil {
					d.metrics.RecordPushFailure()
				}
				d.logger.Error("プッシュ送信に失敗しました",
					slog.String("run_id", runID),
					slog.String("preference_id", prefID),
					slog.String("error", err.Error()),
				)
				return
			}
			sent++
			if d.metrics != nil {
				d.metrics.RecordPushSent()
			}
		}(pref.DeviceToken, pref.ID)
	}

	wg.Wait()

	duration := time.Since(start)
	d.logger.Info("ディスパッチサイクルが完了しました",
		slog.String("run_id", runID),
		slog.Int("sent_count", sent),
		slog.Int("failed_count", failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
