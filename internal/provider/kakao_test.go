package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/readlog/internal/model"
)

func TestKakaoClient_FetchProfile_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer kakao-access-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// idは数値で返る
		w.Write([]byte(`{"id":99887766,"kakao_account":{"email":"reader@kakao.com"}}`))
	}))
	defer server.Close()

	client := NewKakaoClient(KakaoConfig{ProfileURL: server.URL}, http.DefaultClient)

	profile, err := client.FetchProfile(context.Background(), "kakao-access-token")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	// 数値IDは文字列に正規化されること
	if profile.ExternalID != "99887766" {
		t.Errorf("ExternalID = %q, want %q", profile.ExternalID, "99887766")
	}
	if profile.Email != "reader@kakao.com" {
		t.Errorf("Email = %q, want reader@kakao.com", profile.Email)
	}
}

func TestKakaoClient_FetchProfile_EmailOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// メール提供に未同意のアカウントはkakao_accountにemailを含まない
		w.Write([]byte(`{"id":42,"kakao_account":{}}`))
	}))
	defer server.Close()

	client := NewKakaoClient(KakaoConfig{ProfileURL: server.URL}, http.DefaultClient)

	profile, err := client.FetchProfile(context.Background(), "kakao-access-token")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.Email != "" {
		t.Errorf("Email = %q, want empty", profile.Email)
	}
}

func TestKakaoClient_FetchProfile_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"kakao_account":{"email":"reader@kakao.com"}}`))
	}))
	defer server.Close()

	client := NewKakaoClient(KakaoConfig{ProfileURL: server.URL}, http.DefaultClient)

	_, err := client.FetchProfile(context.Background(), "kakao-access-token")
	upErr, ok := IsUpstreamError(err)
	if !ok {
		t.Fatalf("expected UpstreamError for profile without id, got %v", err)
	}
	if upErr.Provider != model.ProviderKakao {
		t.Errorf("Provider = %q, want KAKAO", upErr.Provider)
	}
}

func TestKakaoClient_FetchProfile_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"msg":"this access token does not exist","code":-401}`))
	}))
	defer server.Close()

	client := NewKakaoClient(KakaoConfig{ProfileURL: server.URL}, http.DefaultClient)

	_, err := client.FetchProfile(context.Background(), "expired-token")
	upErr, ok := IsUpstreamError(err)
	if !ok {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", upErr.Status)
	}
}

func TestKakaoClient_FetchProfile_EmptyToken(t *testing.T) {
	client := NewKakaoClient(KakaoConfig{ProfileURL: "http://unused.invalid"}, http.DefaultClient)

	_, err := client.FetchProfile(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty access token")
	}
}
