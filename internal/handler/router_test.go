package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/readlog/internal/directory"
	"github.com/hitoshi/readlog/internal/middleware"
	"github.com/hitoshi/readlog/internal/relay"
)

// mockHealthChecker はHealthCheckerのテスト用モック。
type mockHealthChecker struct {
	pingFunc func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

func newTestRouter(t *testing.T, checker *mockHealthChecker) (http.Handler, *directory.TokenService) {
	t.Helper()

	tokenService, err := directory.NewTokenService("test-secret-0123456789abcdef", time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	deps := &RouterDeps{
		HealthChecker:     checker,
		TokenVerifier:     tokenService,
		CORSAllowedOrigin: "*",
		RateLimiter:       middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),

		AuthService:     &mockAuthService{},
		CodeStore:       relay.NewCodeStore(time.Minute),
		Metrics:         &mockAuthRecorder{},
		PreferenceStore: &mockPreferenceStore{},
	}

	return NewRouter(deps), tokenService
}

func TestRouter_Health_OK(t *testing.T) {
	router, _ := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("body = %q, want status ok", w.Body.String())
	}
}

func TestRouter_Health_DatabaseDown(t *testing.T) {
	checker := &mockHealthChecker{
		pingFunc: func(ctx context.Context) error {
			return errors.New("connection refused")
		},
	}
	router, _ := newTestRouter(t, checker)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestRouter_LoginEndpointsAreReachable(t *testing.T) {
	router, _ := newTestRouter(t, &mockHealthChecker{})

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/naver", `{"naverAuthCode":"auth-code"}`, http.StatusOK},
		{http.MethodPost, "/kakao", `{"kakaoAccessToken":"access-token"}`, http.StatusOK},
		{http.MethodPost, "/auth/session", `{"token":"custom-token"}`, http.StatusOK},
		{http.MethodGet, "/auth/code?state=unknown", "", http.StatusOK},
		{http.MethodGet, "/naver/callback?code=c&state=s", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d\nbody: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRouter_PreferencesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRouter_PreferencesWithValidToken(t *testing.T) {
	router, tokenService := newTestRouter(t, &mockHealthChecker{})

	token, err := tokenService.CreateSessionToken("naver:1")
	if err != nil {
		t.Fatalf("CreateSessionToken() error = %v", err)
	}

	body := `{"deviceToken":"device-token-1","hour":21,"minute":30,"days":31}`
	req := httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
}

func TestRouter_PreferencesRejectsCustomToken(t *testing.T) {
	router, tokenService := newTestRouter(t, &mockHealthChecker{})

	// カスタムトークンはAPI認証に使えない
	token, err := tokenService.CreateCustomToken("naver:1", directory.Claims{})
	if err != nil {
		t.Fatalf("CreateCustomToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodOptions, "/naver", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestRouter_MetricsRouteWhenConfigured(t *testing.T) {
	// MetricsHandlerがnilの場合は/metricsを公開しない
	router, _ := newTestRouter(t, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Error("metrics route should not be exposed without a handler")
	}
}
