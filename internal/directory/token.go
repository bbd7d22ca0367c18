package directory

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/readlog/internal/model"
)

const (
	tokenIssuer = "readlog"

	// tokenUseCustom はクライアントが1回だけセッションに交換するカスタムトークン。
	tokenUseCustom = "custom"
	// tokenUseSession は交換後にAPI認証へ使うセッショントークン。
	tokenUseSession = "session"
)

// Claims はカスタムトークンに埋め込むプロバイダーメタデータ。
type Claims struct {
	Provider model.Provider
	Email    string
}

// tokenClaims はJWTペイロード。subに内部アカウントIDを格納する。
type tokenClaims struct {
	Provider string `json:"provider,omitempty"`
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenService はHS256署名付きトークンの発行と検証を行う。
// ローカル状態は持たず、毎回新しいトークンを発行する。
type TokenService struct {
	secret     []byte
	customTTL  time.Duration
	sessionTTL time.Duration
}

// NewTokenService はTokenServiceを生成する。
// シークレットは16文字以上を要求する。
func NewTokenService(secret string, customTTL, sessionTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("token secret must be at least 16 characters")
	}
	if customTTL <= 0 {
		customTTL = time.Hour
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &TokenService{
		secret:     []byte(secret),
		customTTL:  customTTL,
		sessionTTL: sessionTTL,
	}, nil
}

// CreateCustomToken は内部アカウントIDとプロバイダー情報を束ねた
// カスタムトークンを発行する。サーバー側には保存しない。
func (s *TokenService) CreateCustomToken(accountID string, claims Claims) (string, error) {
	return s.sign(accountID, string(claims.Provider), claims.Email, tokenUseCustom, s.customTTL)
}

// CreateSessionToken はセッション確立後のAPI認証用トークンを発行する。
func (s *TokenService) CreateSessionToken(accountID string) (string, error) {
	return s.sign(accountID, "", "", tokenUseSession, s.sessionTTL)
}

// VerifyCustomToken はカスタムトークンを検証し、サブジェクトと
// プロバイダー情報を返す。期限切れ・署名不正・用途違いはエラー。
func (s *TokenService) VerifyCustomToken(token string) (string, Claims, error) {
	return s.verify(token, tokenUseCustom)
}

// VerifySessionToken はセッショントークンを検証し、サブジェクトを返す。
func (s *TokenService) VerifySessionToken(token string) (string, error) {
	sub, _, err := s.verify(token, tokenUseSession)
	return sub, err
}

func (s *TokenService) sign(accountID, provider, email, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := tokenClaims{
		Provider: provider,
		Email:    email,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) verify(tokenStr, wantUse string) (string, Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", Claims{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.TokenUse != wantUse {
		return "", Claims{}, fmt.Errorf("unexpected token use: %q", claims.TokenUse)
	}
	if claims.Subject == "" {
		return "", Claims{}, errors.New("token has no subject")
	}
	return claims.Subject, Claims{Provider: model.Provider(claims.Provider), Email: claims.Email}, nil
}
