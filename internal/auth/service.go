// Package auth はフェデレーテッドログインのオーケストレーションを提供する。
// 外部IdPとの交換、アカウントプロビジョニング、カスタムトークン発行を束ねる。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/readlog/internal/directory"
	"github.com/hitoshi/readlog/internal/model"
	"github.com/hitoshi/readlog/internal/provider"
	"github.com/hitoshi/readlog/internal/repository"
)

// AccountProvisioner はアカウントプロビジョニングのインターフェース。
// テスト時にモックに差し替え可能。
type AccountProvisioner interface {
	Provision(ctx context.Context, identity model.ExternalIdentity) (*model.Account, error)
}

// TokenIssuer はトークンの発行と検証のインターフェース。
type TokenIssuer interface {
	CreateCustomToken(accountID string, claims directory.Claims) (string, error)
	VerifyCustomToken(token string) (string, directory.Claims, error)
	CreateSessionToken(accountID string) (string, error)
}

// Service はフェデレーテッド認証のビジネスロジックを提供する。
// リクエスト1回につき1回の試行のみで、内部でのリトライは行わない。
type Service struct {
	naver       *provider.NaverClient
	kakao       provider.Client
	provisioner AccountProvisioner
	tokens      TokenIssuer
	accountRepo repository.AccountRepository
}

// NewService はServiceを生成する。
func NewService(
	naver *provider.NaverClient,
	kakao provider.Client,
	provisioner AccountProvisioner,
	tokens TokenIssuer,
	accountRepo repository.AccountRepository,
) *Service {
	return &Service{
		naver:       naver,
		kakao:       kakao,
		provisioner: provisioner,
		tokens:      tokens,
		accountRepo: accountRepo,
	}
}

// LoginNaver はNaverの認可コードを交換し、プロビジョニング済みアカウントの
// カスタムトークンを返す。
func (s *Service) LoginNaver(ctx context.Context, code string) (string, error) {
	accessToken, err := s.naver.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange naver code: %w", err)
	}
	return s.login(ctx, s.naver, accessToken)
}

// LoginKakao はKakaoのアクセストークンでプロフィールを検証し、
// プロビジョニング済みアカウントのカスタムトークンを返す。
func (s *Service) LoginKakao(ctx context.Context, accessToken string) (string, error) {
	return s.login(ctx, s.kakao, accessToken)
}

// login はプロフィール取得→プロビジョニング→トークン発行の共通フロー。
func (s *Service) login(ctx context.Context, client provider.Client, accessToken string) (string, error) {
	profile, err := client.FetchProfile(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s profile: %w", client.Name(), err)
	}

	identity := model.ExternalIdentity{
		Provider:   client.Name(),
		ExternalID: profile.ExternalID,
		Email:      profile.Email,
	}

	account, err := s.provisioner.Provision(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("failed to provision account: %w", err)
	}

	token, err := s.tokens.CreateCustomToken(account.ID, directory.Claims{
		Provider: account.Provider,
		Email:    account.Email,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create custom token: %w", err)
	}

	slog.Info("federated login succeeded",
		slog.String("account_id", account.ID),
		slog.String("provider", string(account.Provider)),
	)

	return token, nil
}

// ExchangeSession はカスタムトークンを検証してアカウントをactiveに遷移させ、
// セッショントークンを返す。カスタムトークンはこの交換で消費される想定だが、
// サーバー側には保存しないため再利用の防止は有効期限に委ねる。
func (s *Service) ExchangeSession(ctx context.Context, customToken string) (string, error) {
	accountID, _, err := s.tokens.VerifyCustomToken(customToken)
	if err != nil {
		slog.Warn("custom token verification failed", slog.String("error", err.Error()))
		return "", model.NewInvalidTokenError()
	}

	if err := s.accountRepo.MarkActive(ctx, accountID); err != nil {
		return "", fmt.Errorf("failed to activate account: %w", err)
	}

	sessionToken, err := s.tokens.CreateSessionToken(accountID)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}

	slog.Info("session established", slog.String("account_id", accountID))

	return sessionToken, nil
}
