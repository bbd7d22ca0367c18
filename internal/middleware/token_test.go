package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockTokenVerifier はTokenVerifierのテスト用モック。
type mockTokenVerifier struct {
	verifyFunc func(token string) (string, error)
}

func (m *mockTokenVerifier) VerifySessionToken(token string) (string, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(token)
	}
	return "naver:1", nil
}

func TestTokenMiddleware_ValidToken_InjectsAccountID(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFunc: func(token string) (string, error) {
			if token != "valid-token" {
				t.Errorf("token = %q, want valid-token", token)
			}
			return "naver:12345", nil
		},
	}

	var gotAccountID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := AccountIDFromContext(r.Context())
		if err != nil {
			t.Errorf("AccountIDFromContext() error = %v", err)
		}
		gotAccountID = id
	})

	mw := NewTokenMiddleware(verifier)

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if gotAccountID != "naver:12345" {
		t.Errorf("accountID = %q, want naver:12345", gotAccountID)
	}
}

func TestTokenMiddleware_RejectsRequests(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"ヘッダーなし", ""},
		{"Bearerプレフィックスなし", "valid-token"},
		{"Basic認証", "Basic dXNlcjpwYXNz"},
		{"空のトークン", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
			})

			mw := NewTokenMiddleware(&mockTokenVerifier{})

			req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			mw(next).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if nextCalled {
				t.Error("next handler should not be called")
			}
		})
	}
}

func TestTokenMiddleware_VerificationFailure(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFunc: func(token string) (string, error) {
			return "", errors.New("token is expired")
		},
	}

	mw := NewTokenMiddleware(verifier)

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAccountIDFromContext_Missing(t *testing.T) {
	if _, err := AccountIDFromContext(context.Background()); err == nil {
		t.Error("expected error for context without account ID")
	}
}

func TestContextWithAccountID_RoundTrip(t *testing.T) {
	ctx := ContextWithAccountID(context.Background(), "kakao:42")

	id, err := AccountIDFromContext(ctx)
	if err != nil {
		t.Fatalf("AccountIDFromContext() error = %v", err)
	}
	if id != "kakao:42" {
		t.Errorf("accountID = %q, want kakao:42", id)
	}
}
