package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/fundman/internal/model"
)

// PostgresProfileRepoはProfileRepositoryインターフェースを満たすことを検証
func TestPostgresProfileRepo_ImplementsInterface(t *testing.T) {
	var _ ProfileRepository = (*PostgresProfileRepo)(nil)
}

// NewPostgresProfileRepoが正しく初期化されることを検証
func TestNewPostgresProfileRepo_Initializes(t *testing.T) {
	repo := NewPostgresProfileRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// DB未接続の場合、全メソッドがSTORE_UNAVAILABLEを返すことを検証
func TestPostgresProfileRepo_NilDB_StoreUnavailable(t *testing.T) {
	repo := NewPostgresProfileRepo(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"Create", func() error {
			return repo.Create(ctx, &model.Profile{UID: "user-1"})
		}},
		{"FindByUID", func() error {
			_, err := repo.FindByUID(ctx, "user-1")
			return err
		}},
		{"FindByEmail", func() error {
			_, err := repo.FindByEmail(ctx, "test@example.com")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error is not APIError: %v", err)
			}
			if apiErr.Code != model.ErrCodeStoreUnavailable {
				t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeStoreUnavailable)
			}
		})
	}
}

// Profileモデルのフィールドが正しく構築されることを検証
func TestPostgresProfileRepo_ProfileModel_Fields(t *testing.T) {
	now := time.Now()
	profile := &model.Profile{
		UID:         "user-1",
		Email:       "test@example.com",
		DisplayName: "テストユーザー",
		Role:        model.RoleInvestor,
		CreatedAt:   now,
	}

	if profile.Role != model.RoleInvestor {
		t.Errorf("profile.Role = %q, want %q", profile.Role, model.RoleInvestor)
	}

	identity := profile.Identity()
	if identity.UID != profile.UID {
		t.Errorf("identity.UID = %q, want %q", identity.UID, profile.UID)
	}
	if identity.Email != profile.Email {
		t.Errorf("identity.Email = %q, want %q", identity.Email, profile.Email)
	}
}
