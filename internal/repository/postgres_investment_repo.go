package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fundman/internal/model"
)

// PostgresInvestmentRepo はPostgreSQLを使用した投資台帳リポジトリ。
type PostgresInvestmentRepo struct {
	db *sql.DB
}

// NewPostgresInvestmentRepo はPostgresInvestmentRepoを生成する。
func NewPostgresInvestmentRepo(db *sql.DB) *PostgresInvestmentRepo {
	return &PostgresInvestmentRepo{db: db}
}

// Record は投資を記録する。
// 台帳への追記とプロジェクトカウンターの加算を単一トランザクションで実行するため、
// 台帳と集計値の不整合（部分書き込み）は発生しない。
// カウンター加算は SET x = x + $n 形式の原子的加算であり、
// 読み取り後書き込みによる更新消失は同時投資下でも起こらない。
// idempotency_keyが既存の場合は何も書き込まず、既存の記録とcreated=falseを返す。
func (r *PostgresInvestmentRepo) Record(ctx context.Context, investment *model.Investment) (*model.Investment, bool, error) {
	if r.db == nil {
		return nil, false, model.NewStoreUnavailableError()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 台帳に追記（冪等キー衝突時は書き込まない）
	result, err := tx.ExecContext(ctx,
		`INSERT INTO investments (id, idempotency_key, project_id, investor_id,
		     shares, price_per_share, total_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		investment.ID, investment.IdempotencyKey, investment.ProjectID, investment.InvestorID,
		investment.Shares, investment.PricePerShare, investment.TotalAmount, investment.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert investment: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if inserted == 0 {
		// 再試行: 既存の記録を返す（カウンターは加算済みのため再加算しない）
		existing, err := r.FindByIdempotencyKey(ctx, investment.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("idempotency key conflict but record not found: %s", investment.IdempotencyKey)
		}
		return existing, false, nil
	}

	// 2. プロジェクトのカウンターを原子的に加算
	updateResult, err := tx.ExecContext(ctx,
		`UPDATE projects
		 SET current_funding = current_funding + $2,
		     investors       = investors + 1
		 WHERE id = $1`,
		investment.ProjectID, investment.TotalAmount,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to increment project funding: %w", err)
	}

	updated, err := updateResult.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if updated == 0 {
		return nil, false, model.NewProjectNotFoundError(investment.ProjectID)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit investment transaction: %w", err)
	}

	return investment, true, nil
}

// FindByIdempotencyKey は冪等キーで投資を検索する。見つからない場合はnilを返す。
func (r *PostgresInvestmentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Investment, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	inv := &model.Investment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, idempotency_key, COALESCE(project_id, ''), investor_id,
		        shares, price_per_share, total_amount, created_at
		 FROM investments WHERE idempotency_key = $1`,
		key,
	).Scan(&inv.ID, &inv.IdempotencyKey, &inv.ProjectID, &inv.InvestorID,
		&inv.Shares, &inv.PricePerShare, &inv.TotalAmount, &inv.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find investment by idempotency key: %w", err)
	}

	return inv, nil
}

// ListByInvestor は指定投資家の投資一覧をプロジェクト情報付きでcreated_at降順で返す。
// プロジェクトのタイトル・カテゴリは読み取り時にJOINで非正規化する。
// プロジェクトが削除済みの場合（project_idがNULL）はフォールバック表記で返す。
func (r *PostgresInvestmentRepo) ListByInvestor(ctx context.Context, investorID string) ([]model.InvestmentWithProject, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.idempotency_key, COALESCE(i.project_id, ''), i.investor_id,
		        i.shares, i.price_per_share, i.total_amount, i.created_at,
		        COALESCE(p.title, 'Unknown Project'),
		        COALESCE(p.category, 'Unknown')
		 FROM investments i
		 LEFT JOIN projects p ON p.id = i.project_id
		 WHERE i.investor_id = $1
		 ORDER BY i.created_at DESC`,
		investorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var investments []model.InvestmentWithProject
	for rows.Next() {
		var iwp model.InvestmentWithProject
		err := rows.Scan(
			&iwp.ID, &iwp.IdempotencyKey, &iwp.ProjectID, &iwp.InvestorID,
			&iwp.Shares, &iwp.PricePerShare, &iwp.TotalAmount, &iwp.CreatedAt,
			&iwp.ProjectTitle, &iwp.ProjectCategory,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, iwp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", err)
	}

	return investments, nil
}

// ListFundingDrift は台帳の集計値とプロジェクトカウンターが一致しない
// プロジェクトを返す。整合性監査ジョブで使用する。
func (r *PostgresInvestmentRepo) ListFundingDrift(ctx context.Context) ([]FundingDrift, error) {
	if r.db == nil {
		return nil, model.NewStoreUnavailableError()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.current_funding, COALESCE(SUM(i.total_amount), 0),
		        p.investors, COUNT(i.id)
		 FROM projects p
		 LEFT JOIN investments i ON i.project_id = p.id
		 GROUP BY p.id, p.current_funding, p.investors
		 HAVING p.current_funding <> COALESCE(SUM(i.total_amount), 0)
		     OR p.investors <> COUNT(i.id)`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query funding drift: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var drifts []FundingDrift
	for rows.Next() {
		var d FundingDrift
		err := rows.Scan(&d.ProjectID, &d.CurrentFunding, &d.LedgerTotal,
			&d.InvestorsCounter, &d.LedgerCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan funding drift: %w", err)
		}
		d.CheckedAt = now
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate funding drift: %w", err)
	}

	return drifts, nil
}

// compile-time interface check
var _ InvestmentRepository = (*PostgresInvestmentRepo)(nil)
