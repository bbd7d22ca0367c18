// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError はクライアントに返すエラーの分類を保持する。
// クライアントに見せるメッセージは固定文言のみで、
// 上流レスポンスや内部エラーの詳細は決して含めない。
type APIError struct {
	Code     string // エラーコード
	Message  string // クライアント向け固定メッセージ
	Category string // カテゴリ: caller, upstream, dependency
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingArtifact = "MISSING_ARTIFACT"
	ErrCodeInvalidBody     = "INVALID_BODY"
	ErrCodeUpstreamAuth    = "UPSTREAM_AUTH_FAILED"
	ErrCodeDependency      = "DEPENDENCY_FAILED"
	ErrCodeInvalidToken    = "INVALID_TOKEN"
	ErrCodeNotFound        = "NOT_FOUND"
)

// NewMissingArtifactError は認可アーティファクト欠落エラーを生成する。
// プロバイダーごとに要求する項目が異なる（Naverは認可コード、Kakaoはアクセストークン）。
func NewMissingArtifactError(provider Provider) *APIError {
	var what string
	switch provider {
	case ProviderNaver:
		what = "auth code"
	default:
		what = "access token"
	}
	return &APIError{
		Code:     ErrCodeMissingArtifact,
		Message:  fmt.Sprintf("Missing %s %s", provider.DisplayName(), what),
		Category: "caller",
	}
}

// NewInvalidBodyError はリクエストボディの形式不正エラーを生成する。
func NewInvalidBodyError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBody,
		Message:  "Invalid request body",
		Category: "caller",
	}
}

// NewUpstreamAuthError は外部IdPとの認証失敗エラーを生成する。
// 上流のステータスやボディはログ専用で、このメッセージには決して含めない。
func NewUpstreamAuthError(provider Provider) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamAuth,
		Message:  fmt.Sprintf("Failed to authenticate with %s", provider.DisplayName()),
		Category: "upstream",
	}
}

// NewPreferenceNotFoundError は通知設定が未登録のアカウントに対する
// 取得要求のエラーを生成する。
func NewPreferenceNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "Notification preference not found",
		Category: "caller",
	}
}

// NewInvalidTokenError は不正なカスタムトークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid or expired token",
		Category: "caller",
	}
}
