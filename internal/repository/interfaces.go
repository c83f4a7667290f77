// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/fundman/internal/model"
)

// ProfileRepository はユーザープロフィールの永続化インターフェース。
// プロフィールはサインアップ時に1回だけ作成され、以降更新されない。
type ProfileRepository interface {
	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error

	// FindByUID は指定UIDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUID(ctx context.Context, uid string) (*model.Profile, error)

	// FindByEmail はメールアドレスでプロフィールを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUID は指定ユーザーの全セッションを削除する。
	DeleteByUID(ctx context.Context, uid string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
// CurrentFunding・Investorsの変更はInvestmentRepository.Recordのみが行う。
type ProjectRepository interface {
	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// ListAll は全プロジェクトをcreated_at降順（新しい順）で返す。
	ListAll(ctx context.Context) ([]*model.Project, error)

	// ListByOwner は指定オーナーのプロジェクトをcreated_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Project, error)

	// Update はプロジェクトを部分更新し、更新後のプロジェクトを返す。
	// nilフィールドは変更しない。見つからない場合はnilを返す。
	Update(ctx context.Context, id string, update model.ProjectUpdate) (*model.Project, error)

	// UpdateFavicon はプロジェクトのfaviconデータを更新する。
	UpdateFavicon(ctx context.Context, projectID string, faviconData []byte, faviconMime string) error

	// Delete は指定IDのプロジェクトを削除する。
	Delete(ctx context.Context, id string) error

	// ListWithSiteURL はサイトURLが設定されたプロジェクトを返す。
	// favicon更新バッチで使用する。
	ListWithSiteURL(ctx context.Context) ([]*model.Project, error)
}

// InvestmentRepository は投資台帳の永続化インターフェース。
// 台帳は追記専用であり、更新・削除操作は提供しない。
type InvestmentRepository interface {
	// Record は投資を記録する。台帳への追記とプロジェクトの
	// current_funding・investorsカウンターの原子的加算を
	// 単一トランザクションで実行する。
	// idempotency_keyが既存の場合は何も書き込まず、既存の記録と
	// created=falseを返す（再試行の二重計上防止）。
	Record(ctx context.Context, investment *model.Investment) (recorded *model.Investment, created bool, err error)

	// FindByIdempotencyKey は冪等キーで投資を検索する。見つからない場合はnilを返す。
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Investment, error)

	// ListByInvestor は指定投資家の投資一覧をプロジェクト情報付きで
	// created_at降順で返す。プロジェクトのタイトル・カテゴリは
	// 読み取り時に非正規化結合する（台帳には保存しない）。
	ListByInvestor(ctx context.Context, investorID string) ([]model.InvestmentWithProject, error)

	// ListFundingDrift は台帳の集計値とプロジェクトのカウンターが
	// 一致しないプロジェクトを返す。整合性監査で使用する。
	ListFundingDrift(ctx context.Context) ([]FundingDrift, error)
}

// FundingDrift はプロジェクトのカウンターと台帳集計の不一致を表す。
// 主経路では両書き込みが同一トランザクションのため通常は発生しない。
type FundingDrift struct {
	ProjectID        string
	CurrentFunding   model.Money // projects.current_funding
	LedgerTotal      model.Money // Σ investments.total_amount
	InvestorsCounter int         // projects.investors
	LedgerCount      int         // count(investments)
	CheckedAt        time.Time
}
