package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/readlog/internal/model"
)

const (
	defaultNaverTokenURL   = "https://nid.naver.com/oauth2.0/token"
	defaultNaverProfileURL = "https://openapi.naver.com/v1/nid/me"
)

// NaverConfig はNaverログインプロバイダーの設定。
type NaverConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	TokenURL   string
	ProfileURL string
}

// NaverClient はNaverログインAPIのクライアント。
// 認可コード交換とプロフィール取得の両方に対応する。
type NaverClient struct {
	config     NaverConfig
	httpClient *http.Client
}

// NewNaverClient はNaverClientを生成する。
func NewNaverClient(config NaverConfig, httpClient *http.Client) *NaverClient {
	if config.TokenURL == "" {
		config.TokenURL = defaultNaverTokenURL
	}
	if config.ProfileURL == "" {
		config.ProfileURL = defaultNaverProfileURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &NaverClient{config: config, httpClient: httpClient}
}

// Name はプロバイダー種別を返す。
func (c *NaverClient) Name() model.Provider {
	return model.ProviderNaver
}

// naverTokenResponse はNaverトークンエンドポイントのレスポンス。
type naverTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    string `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// naverProfileResponse はNaverプロフィールエンドポイントのレスポンス。
// 実データはresponseフィールドにネストされる。
type naverProfileResponse struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"response"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// 非2xx応答・不正JSON・エラーフィールド付き応答はUpstreamErrorとして返す。
func (c *NaverClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("authorization code is required")
	}

	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {c.config.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Provider: model.ProviderNaver, Status: resp.StatusCode, Body: string(body)}
	}

	var tokenResp naverTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &UpstreamError{Provider: model.ProviderNaver, Status: resp.StatusCode, Body: string(body)}
	}

	// Naverはエラー時も200でerrorフィールドを返すことがある
	if tokenResp.AccessToken == "" {
		return "", &UpstreamError{Provider: model.ProviderNaver, Status: resp.StatusCode, Body: string(body)}
	}

	return tokenResp.AccessToken, nil
}

// FetchProfile はアクセストークンでNaverのユーザープロフィールを取得する。
func (c *NaverClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Provider: model.ProviderNaver, Status: resp.StatusCode, Body: string(body)}
	}

	var profileResp naverProfileResponse
	if err := json.Unmarshal(body, &profileResp); err != nil {
		return nil, &UpstreamError{Provider: model.ProviderNaver, Status: resp.StatusCode, Body: string(body)}
	}

	if profileResp.Response.ID == "" {
		return nil, &UpstreamError{Provider: model.ProviderNaver, Status: resp.StatusCode, Body: string(body)}
	}

	return &Profile{
		ExternalID: profileResp.Response.ID,
		Email:      profileResp.Response.Email,
	}, nil
}

// compile-time interface check
var (
	_ Client        = (*NaverClient)(nil)
	_ CodeExchanger = (*NaverClient)(nil)
)
