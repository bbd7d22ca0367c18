package repository

import (
	"testing"
)

// PostgresAccountRepoはAccountRepositoryインターフェースを満たすことを検証
func TestPostgresAccountRepo_ImplementsInterface(t *testing.T) {
	var _ AccountRepository = (*PostgresAccountRepo)(nil)
}

// PostgresPreferenceRepoはPreferenceRepositoryインターフェースを満たすことを検証
func TestPostgresPreferenceRepo_ImplementsInterface(t *testing.T) {
	var _ PreferenceRepository = (*PostgresPreferenceRepo)(nil)
}

// NewPostgresAccountRepoが正しく初期化されることを検証
func TestNewPostgresAccountRepo_Initializes(t *testing.T) {
	repo := NewPostgresAccountRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresPreferenceRepoが正しく初期化されることを検証
func TestNewPostgresPreferenceRepo_Initializes(t *testing.T) {
	repo := NewPostgresPreferenceRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
