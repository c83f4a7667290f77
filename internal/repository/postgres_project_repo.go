package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fundman/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// projectColumns はSELECT句で使用するカラムリスト。
const projectColumns = `id, title, description, full_description, category,
	funding_goal, current_funding, price_per_share, owner_id, owner_name,
	site_url, favicon_data, favicon_mime, investors, created_at`

// scanProject は1行をmodel.Projectに読み込む。
func scanProject(row interface{ Scan(dest ...any) error }) (*model.Project, error) {
	p := &model.Project{}
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.FullDescription, &p.Category,
		&p.FundingGoal, &p.CurrentFunding, &p.PricePerShare, &p.OwnerID, &p.OwnerName,
		&p.SiteURL, &p.FaviconData, &p.FaviconMime, &p.Investors, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	if r.db == nil {
		return model.NewStoreUnavailableError()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, title, description, full_description, category,
		     funding_goal, current_funding, price_per_share, owner_id, owner_name,
		     site_url, investors, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		project.ID, project.Title, project.Description, project.FullDescription, project.Category,
		project.FundingGoal, project.CurrentFunding, project.PricePerShare, project.OwnerID, project.OwnerName,
		project.SiteURL, project.Investors, project.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id,
	)

	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}

	return project, nil
}

// ListAll は全プロジェクトをcreated_at降順（新しい順）で返す。
func (r *PostgresProjectRepo) ListAll(ctx context.Context) ([]*model.Project, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// ListByOwner は指定オーナーのプロジェクトをcreated_at降順で返す。
func (r *PostgresProjectRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Project, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by owner: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// Update はプロジェクトを部分更新し、更新後のプロジェクトを返す。
// nilフィールドはCOALESCEにより既存値を維持する。見つからない場合はnilを返す。
// current_funding・investorsは投資トランザクション専用のため対象外。
func (r *PostgresProjectRepo) Update(ctx context.Context, id string, update model.ProjectUpdate) (*model.Project, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE projects SET
		     title            = COALESCE($2, title),
		     description      = COALESCE($3, description),
		     full_description = COALESCE($4, full_description),
		     category         = COALESCE($5, category),
		     funding_goal     = COALESCE($6, funding_goal),
		     price_per_share  = COALESCE($7, price_per_share),
		     site_url         = COALESCE($8, site_url)
		 WHERE id = $1
		 RETURNING `+projectColumns,
		id,
		update.Title, update.Description, update.FullDescription, update.Category,
		moneyArg(update.FundingGoal), moneyArg(update.PricePerShare), update.SiteURL,
	)

	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// UpdateFavicon はプロジェクトのfaviconデータを更新する。
func (r *PostgresProjectRepo) UpdateFavicon(ctx context.Context, projectID string, faviconData []byte, faviconMime string) error {
	if r.db == nil {
		return model.NewStoreUnavailableError()
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET favicon_data = $2, favicon_mime = $3 WHERE id = $1`,
		projectID, faviconData, faviconMime,
	)
	if err != nil {
		return fmt.Errorf("failed to update project favicon: %w", err)
	}
	return nil
}

// Delete は指定IDのプロジェクトを削除する。
// 台帳（investments）の行は削除せず、project_idがNULLになるだけで履歴は残る。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return model.NewStoreUnavailableError()
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewProjectNotFoundError(id)
	}
	return nil
}

// ListWithSiteURL はサイトURLが設定されたプロジェクトを返す。
func (r *PostgresProjectRepo) ListWithSiteURL(ctx context.Context) ([]*model.Project, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE site_url <> '' ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects with site URL: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// collectProjects はクエリ結果の全行をmodel.Projectスライスに読み込む。
func collectProjects(rows *sql.Rows) ([]*model.Project, error) {
	var projects []*model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// moneyArg は*model.Moneyをsql引数に変換する。nilはSQLのNULLになる。
func moneyArg(m *model.Money) any {
	if m == nil {
		return nil
	}
	return int64(*m)
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
