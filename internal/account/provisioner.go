// Package account は外部IDに対する内部アカウントのプロビジョニングを提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/readlog/internal/directory"
	"github.com/hitoshi/readlog/internal/model"
	"github.com/hitoshi/readlog/internal/repository"
)

// Provisioner は検証済みの外部IDに対して内部アカウントの存在を保証する。
// 同一外部IDによる同時呼び出し（ログインのダブルタップ等）に対して冪等。
type Provisioner struct {
	dir         directory.Directory
	accountRepo repository.AccountRepository
}

// NewProvisioner はProvisionerを生成する。
func NewProvisioner(dir directory.Directory, accountRepo repository.AccountRepository) *Provisioner {
	return &Provisioner{
		dir:         dir,
		accountRepo: accountRepo,
	}
}

// Provision は内部アカウントを作成または更新して返す。
//
// ディレクトリの「検索してから作成」はcheck-then-actの競合になり得るため、
// 作成はベストエフォートとし、ErrUserExistsは成功として扱う。
// その後のアカウント行の書き込みは純粋なマージUPSERTなので、
// 同時書き込みでもフィールド単位のlast-write-winsに収まり状態は壊れない。
// 分散ロックは使わない。
func (p *Provisioner) Provision(ctx context.Context, identity model.ExternalIdentity) (*model.Account, error) {
	if identity.ExternalID == "" {
		return nil, fmt.Errorf("external ID is required")
	}

	accountID := identity.AccountID()
	email := identity.EmailOrFallback()

	existing, err := p.dir.FindUser(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up directory user: %w", err)
	}

	if existing == nil {
		user := &directory.User{
			ID:          accountID,
			Email:       email,
			DisplayName: fmt.Sprintf("%s User", identity.Provider),
		}
		if err := p.dir.CreateUser(ctx, user); err != nil {
			if !errors.Is(err, directory.ErrUserExists) {
				return nil, fmt.Errorf("failed to create directory user: %w", err)
			}
			// 並行するプロビジョニングが先に作成した。成功として続行する。
			slog.Info("directory user already created concurrently",
				slog.String("account_id", accountID),
			)
		} else {
			slog.Info("directory user created",
				slog.String("account_id", accountID),
				slog.String("provider", string(identity.Provider)),
			)
		}
	}

	// ディレクトリの結果に関わらず常にマージ書き込みを行う
	if err := p.accountRepo.UpsertMerge(ctx, accountID, email, identity.Provider); err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	account, err := p.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account after upsert: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account missing after upsert: %s", accountID)
	}

	return account, nil
}
