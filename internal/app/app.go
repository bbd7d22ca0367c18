// Package app はアプリケーションの起動と依存関係のワイヤリングを担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/readlog/internal/account"
	"github.com/hitoshi/readlog/internal/auth"
	"github.com/hitoshi/readlog/internal/config"
	"github.com/hitoshi/readlog/internal/database"
	"github.com/hitoshi/readlog/internal/directory"
	"github.com/hitoshi/readlog/internal/handler"
	"github.com/hitoshi/readlog/internal/logger"
	"github.com/hitoshi/readlog/internal/metrics"
	"github.com/hitoshi/readlog/internal/middleware"
	"github.com/hitoshi/readlog/internal/provider"
	"github.com/hitoshi/readlog/internal/push"
	"github.com/hitoshi/readlog/internal/relay"
	"github.com/hitoshi/readlog/internal/repository"
	"github.com/hitoshi/readlog/internal/worker/notify"
	"github.com/hitoshi/readlog/internal/worker/reaper"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリとディレクトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	prefRepo := repository.NewPostgresPreferenceRepo(db)
	dir := directory.NewPostgresDirectory(db)

	// 3. トークンサービスの初期化
	tokenService, err := directory.NewTokenService(cfg.TokenSecret, cfg.CustomTokenTTL, cfg.SessionTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// 4. 外部IdPクライアントの初期化
	providerHTTPClient := &http.Client{Timeout: cfg.ProviderTimeout}
	naverClient := provider.NewNaverClient(provider.NaverConfig{
		ClientID:     cfg.NaverClientID,
		ClientSecret: cfg.NaverClientSecret,
		RedirectURL:  cfg.NaverRedirectURL,
	}, providerHTTPClient)
	kakaoClient := provider.NewKakaoClient(provider.KakaoConfig{}, providerHTTPClient)

	// 5. ドメインサービスの初期化
	provisioner := account.NewProvisioner(dir, accountRepo)
	authService := auth.NewService(naverClient, kakaoClient, provisioner, tokenService, accountRepo)

	// 6. メトリクスと認可コードリレーの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	codeStore := relay.NewCodeStore(cfg.RelayTTL)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = perMinute(cfg.RateLimitGeneral)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AuthRate = perMinute(cfg.RateLimitAuth)
	rateLimiterCfg.AuthBurst = cfg.RateLimitAuth

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		TokenVerifier:     tokenService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		Logger:            slog.Default(),

		AuthService:    authService,
		CodeStore:      codeStore,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),

		PreferenceStore: prefRepo,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、アカウントリーパーと通知ディスパッチャを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリとディレクトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	prefRepo := repository.NewPostgresPreferenceRepo(db)
	dir := directory.NewPostgresDirectory(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. リーパーの初期化
	reapJob := reaper.NewReaper(accountRepo, dir, slog.Default(), collector)
	reapJob.Retention = cfg.RetentionWindow

	// 5. プッシュクライアントと通知ディスパッチャの初期化
	pushClient := push.NewClient(
		&http.Client{Timeout: cfg.PushTimeout},
		slog.Default(),
		cfg.PushGatewayURL,
		cfg.PushAPIKey,
	)
	dispatcher := notify.NewDispatcher(prefRepo, pushClient, slog.Default(), collector, cfg.DispatchConcurrency)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("reap_interval", cfg.ReapInterval),
		slog.Duration("dispatch_interval", cfg.DispatchInterval),
		slog.Int("dispatch_concurrency", cfg.DispatchConcurrency),
	)

	// メトリクス公開用の軽量HTTPサーバーをバックグラウンドで起動
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// リーパーをバックグラウンドで起動
	go reapJob.Start(ctx, cfg.ReapInterval)

	// 通知ディスパッチャをメインgoroutineで実行（ブロッキング）
	dispatcher.Start(ctx, cfg.DispatchInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// perMinute はreq/min単位の設定値をrate.Limit（req/sec）に変換する。
func perMinute(requestsPerMinute int) rate.Limit {
	return rate.Limit(float64(requestsPerMinute) / 60.0)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
