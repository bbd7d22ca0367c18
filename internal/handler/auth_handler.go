// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/readlog/internal/metrics"
	"github.com/hitoshi/readlog/internal/middleware"
	"github.com/hitoshi/readlog/internal/model"
	"github.com/hitoshi/readlog/internal/provider"
	"github.com/hitoshi/readlog/internal/relay"
)

// リクエストボディの上限サイズ。認証リクエストは小さいJSONのみを受け付ける。
const maxAuthBodySize = 4 * 1024

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginNaver(ctx context.Context, code string) (string, error)
	LoginKakao(ctx context.Context, accessToken string) (string, error)
	ExchangeSession(ctx context.Context, customToken string) (string, error)
}

// AuthHandler はフェデレーテッドログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	codes   *relay.CodeStore
	metrics metrics.AuthRecorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, codes *relay.CodeStore, recorder metrics.AuthRecorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		codes:   codes,
		metrics: recorder,
	}
}

// recordSuccess は成功カウンタとレイテンシを記録する。レコーダ未設定時は何もしない。
func (h *AuthHandler) recordSuccess(p model.Provider, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordAuthSuccess(string(p))
	h.metrics.RecordAuthLatency(time.Since(start))
}

// recordFailure は失敗カウンタを理由付きで記録する。レコーダ未設定時は何もしない。
func (h *AuthHandler) recordFailure(p model.Provider, reason string) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordAuthFailure(string(p), reason)
}

type naverLoginRequest struct {
	NaverAuthCode string `json:"naverAuthCode"`
}

type kakaoLoginRequest struct {
	KakaoAccessToken string `json:"kakaoAccessToken"`
}

type sessionExchangeRequest struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// decodeStrictJSON はリクエストボディを厳密にデコードする。
// 未知のフィールドと複数のJSON値を拒否する。
func decodeStrictJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAuthBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// ボディに余分なJSON値が続く場合も不正とみなす
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected trailing data in request body")
	}
	return nil
}

// writeTokenResponse は発行したトークンを200 OKで返す。
func writeTokenResponse(w http.ResponseWriter, token string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(tokenResponse{Token: token})
}

// LoginNaver はNaverの認可コードを受け取り、カスタムトークンを発行する。
// POST /naver
//
// 上流の失敗詳細（ステータス、ボディ）はサーバーログにのみ記録し、
// クライアントには固定メッセージだけを返す。
func (h *AuthHandler) LoginNaver(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req naverLoginRequest
	if err := decodeStrictJSON(r, &req); err != nil {
		h.recordFailure(model.ProviderNaver, "invalid_body")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidBodyError())
		return
	}

	if req.NaverAuthCode == "" {
		h.recordFailure(model.ProviderNaver, "missing_artifact")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingArtifactError(model.ProviderNaver))
		return
	}

	token, err := h.service.LoginNaver(r.Context(), req.NaverAuthCode)
	if err != nil {
		h.handleLoginError(w, model.ProviderNaver, err)
		return
	}

	h.recordSuccess(model.ProviderNaver, start)
	writeTokenResponse(w, token)
}

// LoginKakao はKakaoのアクセストークンを受け取り、カスタムトークンを発行する。
// POST /kakao
func (h *AuthHandler) LoginKakao(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req kakaoLoginRequest
	if err := decodeStrictJSON(r, &req); err != nil {
		h.recordFailure(model.ProviderKakao, "invalid_body")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidBodyError())
		return
	}

	if req.KakaoAccessToken == "" {
		h.recordFailure(model.ProviderKakao, "missing_artifact")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingArtifactError(model.ProviderKakao))
		return
	}

	token, err := h.service.LoginKakao(r.Context(), req.KakaoAccessToken)
	if err != nil {
		h.handleLoginError(w, model.ProviderKakao, err)
		return
	}

	h.recordSuccess(model.ProviderKakao, start)
	writeTokenResponse(w, token)
}

// handleLoginError はログイン失敗を分類してレスポンスを書き込む。
// 上流起因か永続化起因かに関わらず、クライアントには同じ固定文言を返す。
func (h *AuthHandler) handleLoginError(w http.ResponseWriter, p model.Provider, err error) {
	if upErr, ok := provider.IsUpstreamError(err); ok {
		slog.Error("upstream authentication failed",
			slog.String("provider", string(p)),
			slog.Int("upstream_status", upErr.Status),
			slog.String("upstream_body", upErr.Body),
		)
		h.recordFailure(p, "upstream")
	} else {
		slog.Error("login failed",
			slog.String("provider", string(p)),
			slog.String("error", err.Error()),
		)
		h.recordFailure(p, "dependency")
	}

	middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewUpstreamAuthError(p))
}

// ExchangeSession はカスタムトークンをセッショントークンへ交換する。
// 交換成功時にアカウントをactiveへ遷移させる。
// POST /auth/session
func (h *AuthHandler) ExchangeSession(w http.ResponseWriter, r *http.Request) {
	var req sessionExchangeRequest
	if err := decodeStrictJSON(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidBodyError())
		return
	}

	if req.Token == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	sessionToken, err := h.service.ExchangeSession(r.Context(), req.Token)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidToken {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
			return
		}
		slog.Error("session exchange failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeTokenResponse(w, sessionToken)
}

// NaverCallback はNaverの認可リダイレクトを受け取り、認可コードを
// state をキーにリレーへ保管する。モバイルアプリ側が GET /auth/code で回収する。
// GET /naver/callback?code=xxx&state=yyy
func (h *AuthHandler) NaverCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		slog.Warn("naver callback missing parameters",
			slog.Bool("has_code", code != ""),
			slog.Bool("has_state", state != ""),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingArtifactError(model.ProviderNaver))
		return
	}

	h.codes.Put(state, code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// TakeCode はリレーに保管された認可コードをワンショットで取り出す。
// 2回目以降の取り出しと期限切れはcode=nullを返す。
// GET /auth/code?state=yyy
func (h *AuthHandler) TakeCode(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidBodyError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	code, ok := h.codes.Take(state)
	if !ok {
		json.NewEncoder(w).Encode(map[string]any{"code": nil})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"code": code})
}
