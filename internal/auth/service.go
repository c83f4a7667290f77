// Package auth はメール・パスワード認証、セッション管理、
// 認証状態変化の通知ストリームを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fundman/internal/model"
	"github.com/hitoshi/fundman/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// 依存はすべてコンストラクタ注入とし、グローバル状態を持たない。
type Service struct {
	profiles repository.ProfileRepository
	sessions repository.SessionRepository
	notifier *Notifier
	config   ServiceConfig
}

// NewService はServiceを生成する。
// notifierはnilを許容する（通知が不要なコンテキスト用）。
func NewService(
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	notifier *Notifier,
	config ServiceConfig,
) *Service {
	return &Service{
		profiles: profiles,
		sessions: sessions,
		notifier: notifier,
		config:   config,
	}
}

// SignUp は新規ユーザーを登録し、セッションを発行する。
// プロフィール（ロールを含む）はこの時点で1回だけ作成され、以降不変。
func (s *Service) SignUp(ctx context.Context, email, password, displayName string, role model.Role) (*model.Profile, *model.Session, error) {
	if email == "" {
		return nil, nil, model.NewMissingFieldError("email")
	}
	if displayName == "" {
		return nil, nil, model.NewMissingFieldError("displayName")
	}
	if len(password) < minPasswordLength {
		return nil, nil, model.NewWeakPasswordError()
	}
	if !role.IsValid() {
		return nil, nil, model.NewInvalidRoleError(string(role))
	}

	// 1. メールアドレスの重複チェック
	existing, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewEmailTakenError(email)
	}

	// 2. パスワードハッシュとプロフィールの作成
	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &model.Profile{
		UID:          generateUID(),
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("uid", profile.UID),
		slog.String("role", string(profile.Role)),
	)

	// 3. セッションを発行し、認証状態変化を通知
	session, err := s.createSession(ctx, profile.UID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.publishSignedIn(profile)

	return profile, session, nil
}

// SignIn はメールアドレスとパスワードで認証し、セッションを発行する。
// メールアドレスの存在有無を秘匿するため、失敗理由は区別しない。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Profile, *model.Session, error) {
	if email == "" || password == "" {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil || !VerifyPassword(profile.PasswordHash, password) {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, profile.UID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user signed in", slog.String("uid", profile.UID))

	s.publishSignedIn(profile)

	return profile, session, nil
}

// SignOut はセッションを破棄し、サインアウトを通知する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user signed out", slog.String("session_id", sessionID))

	if s.notifier != nil {
		s.notifier.Publish(StateEvent{Type: StateSignedOut, Identity: nil})
	}

	return nil
}

// GetCurrentUser はセッションから現在のユーザープロフィールを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	profile, err := s.profiles.FindByUID(ctx, session.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	return profile, nil
}

// publishSignedIn はサインインイベントを通知する。
func (s *Service) publishSignedIn(profile *model.Profile) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(StateEvent{
		Type:     StateSignedIn,
		Identity: profile.Identity(),
	})
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, uid string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UID:       uid,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateUID は新規ユーザーのUIDを生成する。
func generateUID() string {
	return uuid.New().String()
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
