package model

import "testing"

// クライアント向けの文言は固定文字列であり、内部情報を含まないこと。
func TestAPIError_ClientFacingMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{"Naverコード欠落", NewMissingArtifactError(ProviderNaver), "Missing Naver auth code"},
		{"Kakaoトークン欠落", NewMissingArtifactError(ProviderKakao), "Missing Kakao access token"},
		{"Naver上流失敗", NewUpstreamAuthError(ProviderNaver), "Failed to authenticate with Naver"},
		{"Kakao上流失敗", NewUpstreamAuthError(ProviderKakao), "Failed to authenticate with Kakao"},
		{"ボディ不正", NewInvalidBodyError(), "Invalid request body"},
		{"トークン不正", NewInvalidTokenError(), "Invalid or expired token"},
		{"設定未登録", NewPreferenceNotFoundError(), "Notification preference not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Message != tt.want {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.want)
			}
		})
	}
}

// リソース未登録エラーが検証エラーとは別のコード・カテゴリを持つこと。
func TestNewPreferenceNotFoundError_Classification(t *testing.T) {
	err := NewPreferenceNotFoundError()
	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeNotFound)
	}
	if err.Code == ErrCodeInvalidBody {
		t.Error("not-found should not share the invalid-body code")
	}
	if err.Category != "caller" {
		t.Errorf("Category = %q, want caller", err.Category)
	}
}

func TestAPIError_ErrorImplementsError(t *testing.T) {
	var err error = NewInvalidBodyError()
	if err.Error() == "" {
		t.Error("Error() should return a non-empty string")
	}
}
