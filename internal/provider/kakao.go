package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hitoshi/readlog/internal/model"
)

const defaultKakaoProfileURL = "https://kapi.kakao.com/v2/user/me"

// KakaoConfig はKakaoログインプロバイダーの設定。
type KakaoConfig struct {
	// テスト用にオーバーライド可能なURL
	ProfileURL string
}

// KakaoClient はKakao APIのクライアント。
// Kakaoはアプリ側SDKがアクセストークンを取得するため、
// コード交換は行わずプロフィール取得のみを提供する。
type KakaoClient struct {
	config     KakaoConfig
	httpClient *http.Client
}

// NewKakaoClient はKakaoClientを生成する。
func NewKakaoClient(config KakaoConfig, httpClient *http.Client) *KakaoClient {
	if config.ProfileURL == "" {
		config.ProfileURL = defaultKakaoProfileURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &KakaoClient{config: config, httpClient: httpClient}
}

// Name はプロバイダー種別を返す。
func (c *KakaoClient) Name() model.Provider {
	return model.ProviderKakao
}

// kakaoProfileResponse はKakaoユーザー情報エンドポイントのレスポンス。
// idは数値で返るため文字列に正規化する。
type kakaoProfileResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email string `json:"email"`
	} `json:"kakao_account"`
}

// FetchProfile はアクセストークンでKakaoのユーザープロフィールを取得する。
// 非2xx応答・不正JSON・ID欠落はUpstreamErrorとして返す。
func (c *KakaoClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
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
		return nil, &UpstreamError{Provider: model.ProviderKakao, Status: resp.StatusCode, Body: string(body)}
	}

	var profileResp kakaoProfileResponse
	if err := json.Unmarshal(body, &profileResp); err != nil {
		return nil, &UpstreamError{Provider: model.ProviderKakao, Status: resp.StatusCode, Body: string(body)}
	}

	if profileResp.ID == 0 {
		return nil, &UpstreamError{Provider: model.ProviderKakao, Status: resp.StatusCode, Body: string(body)}
	}

	return &Profile{
		ExternalID: strconv.FormatInt(profileResp.ID, 10),
		Email:      profileResp.KakaoAccount.Email,
	}, nil
}

// compile-time interface check
var _ Client = (*KakaoClient)(nil)
