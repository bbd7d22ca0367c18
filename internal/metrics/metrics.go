// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthRecorder は認証試行のメトリクス記録インターフェース。
// ハンドラー層から利用する。
type AuthRecorder interface {
	RecordAuthSuccess(provider string)
	RecordAuthFailure(provider string, reason string)
	RecordAuthLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
// 認証、リーパー、プッシュディスパッチの各カウンターを持つ。
type Collector struct {
	authSuccess    *prometheus.CounterVec
	authFail       *prometheus.CounterVec
	authLatency    prometheus.Histogram
	accountsReaped prometheus.Counter
	pushSent       prometheus.Counter
	pushFail       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readlog_auth_success_total",
			Help: "フェデレーテッドログイン成功の合計数",
		}, []string{"provider"}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readlog_auth_fail_total",
			Help: "フェデレーテッドログイン失敗の合計数（原因別）",
		}, []string{"provider", "reason"}),
		authLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "readlog_auth_latency_seconds",
			Help:    "認証交換フロー全体のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		accountsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readlog_accounts_reaped_total",
			Help: "リーパーが削除したpendingアカウントの合計数",
		}),
		pushSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readlog_push_sent_total",
			Help: "送信に成功したプッシュ通知の合計数",
		}),
		pushFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readlog_push_fail_total",
			Help: "送信に失敗したプッシュ通知の合計数",
		}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFail,
		c.authLatency,
		c.accountsReaped,
		c.pushSent,
		c.pushFail,
	)

	return c
}

// RecordAuthSuccess はログイン成功を記録する。
func (c *Collector) RecordAuthSuccess(provider string) {
	c.authSuccess.WithLabelValues(provider).Inc()
}

// RecordAuthFailure はログイン失敗を原因ラベル付きで記録する。
func (c *Collector) RecordAuthFailure(provider string, reason string) {
	c.authFail.WithLabelValues(provider, reason).Inc()
}

// RecordAuthLatency は認証フローのレイテンシを記録する。
func (c *Collector) RecordAuthLatency(duration time.Duration) {
	c.authLatency.Observe(duration.Seconds())
}

// RecordAccountsReaped はリーパーの削除件数を記録する。
func (c *Collector) RecordAccountsReaped(count int) {
	c.accountsReaped.Add(float64(count))
}

// RecordPushSent はプッシュ送信成功を記録する。
func (c *Collector) RecordPushSent() {
	c.pushSent.Inc()
}

// RecordPushFailure はプッシュ送信失敗を記録する。
func (c *Collector) RecordPushFailure() {
	c.pushFail.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
