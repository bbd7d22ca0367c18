package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/readlog/internal/metrics"
	"github.com/hitoshi/readlog/internal/middleware"
	"github.com/hitoshi/readlog/internal/relay"
)

// HealthChecker はヘルスチェックに必要なDB疎通確認のインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	CodeStore   *relay.CodeStore
	Metrics     metrics.AuthRecorder

	// Prometheusメトリクス公開用ハンドラー（nilの場合は公開しない）
	MetricsHandler http.Handler

	// 通知設定
	PreferenceStore PreferenceStore
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → RateLimit
//
// 認証前エンドポイント（/naver、/kakao、/auth/*）はログイン試行用の
// 厳しいレート制限を適用し、/api/* はトークン検証と一般レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.CodeStore, deps.Metrics)
	prefHandler := NewPreferenceHandler(deps.PreferenceStore)

	// ヘルスチェック（レート制限の外）
	r.Get("/health", NewHealthHandler(deps.HealthChecker))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証不要のルート ---
	// ログイン試行用レート制限を適用
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())

		r.Post("/naver", authHandler.LoginNaver)
		r.Post("/kakao", authHandler.LoginKakao)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/session", authHandler.ExchangeSession)
			r.Get("/code", authHandler.TakeCode)
		})

		// Naver認可リダイレクトの受け口
		r.Get("/naver/callback", authHandler.NaverCallback)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Token → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/preferences", func(r chi.Router) {
			r.Get("/", prefHandler.GetPreference)
			r.Put("/", prefHandler.UpdatePreference)
		})
	})

	return r
}

// NewHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			slog.Error("health check database ping failed", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
