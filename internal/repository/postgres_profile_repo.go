package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fundman/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if r.db == nil {
		return model.NewStoreUnavailableError()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (uid, email, display_name, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.UID, profile.Email, profile.DisplayName, profile.Role, profile.PasswordHash, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// FindByUID は指定UIDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUID(ctx context.Context, uid string) (*model.Profile, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, email, display_name, role, password_hash, created_at
		 FROM profiles WHERE uid = $1`,
		uid,
	).Scan(&profile.UID, &profile.Email, &profile.DisplayName, &profile.Role, &profile.PasswordHash, &profile.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by UID: %w", err)
	}

	return profile, nil
}

// FindByEmail はメールアドレスでプロフィールを検索する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, email, display_name, role, password_hash, created_at
		 FROM profiles WHERE email = $1`,
		email,
	).Scan(&profile.UID, &profile.Email, &profile.DisplayName, &profile.Role, &profile.PasswordHash, &profile.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by email: %w", err)
	}

	return profile, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
