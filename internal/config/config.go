// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Naver OAuth（認可コード交換モード）
	NaverClientID     string
	NaverClientSecret string
	NaverRedirectURL  string

	// Token
	TokenSecret     string
	CustomTokenTTL  time.Duration
	SessionTokenTTL time.Duration

	// Push
	PushGatewayURL string
	PushAPIKey     string
	PushTimeout    time.Duration

	// Provider HTTP
	ProviderTimeout time.Duration

	// Worker
	ReapInterval        time.Duration
	RetentionWindow     time.Duration
	DispatchInterval    time.Duration
	DispatchConcurrency int

	// Relay
	RelayTTL time.Duration

	// Rate Limit（req/min、クライアントIP単位）
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envはローカル開発用。存在しなくてもエラーにしない。
	_ = godotenv.Load(".env")

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	cfg.NaverClientID = os.Getenv("NAVER_CLIENT_ID")
	if cfg.NaverClientID == "" {
		missing = append(missing, "NAVER_CLIENT_ID")
	}

	cfg.NaverClientSecret = os.Getenv("NAVER_CLIENT_SECRET")
	if cfg.NaverClientSecret == "" {
		missing = append(missing, "NAVER_CLIENT_SECRET")
	}

	cfg.NaverRedirectURL = os.Getenv("NAVER_REDIRECT_URL")
	if cfg.NaverRedirectURL == "" {
		missing = append(missing, "NAVER_REDIRECT_URL")
	}

	cfg.PushGatewayURL = os.Getenv("PUSH_GATEWAY_URL")
	if cfg.PushGatewayURL == "" {
		missing = append(missing, "PUSH_GATEWAY_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PushAPIKey = getEnvString("PUSH_API_KEY", "")
	cfg.CustomTokenTTL = getEnvDuration("CUSTOM_TOKEN_TTL", time.Hour)
	cfg.SessionTokenTTL = getEnvDuration("SESSION_TOKEN_TTL", 24*time.Hour)
	cfg.PushTimeout = getEnvDuration("PUSH_TIMEOUT", 10*time.Second)
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.ReapInterval = getEnvDuration("REAP_INTERVAL", 24*time.Hour)
	cfg.RetentionWindow = getEnvDuration("RETENTION_WINDOW", 24*time.Hour)
	cfg.DispatchInterval = getEnvDuration("DISPATCH_INTERVAL", 10*time.Minute)
	cfg.DispatchConcurrency = getEnvInt("DISPATCH_CONCURRENCY", 20)
	cfg.RelayTTL = getEnvDuration("RELAY_TTL", 10*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
