// Package investment は投資トランザクションとポートフォリオ集計の
// ドメインロジックを提供する。
package investment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fundman/internal/model"
	"github.com/hitoshi/fundman/internal/repository"
)

// RoleVerifier は投資実行時のサーバー側ロール再検証のインターフェース。
// role.Resolverを抽象化してテスタビリティを向上させる。
type RoleVerifier interface {
	Resolve(ctx context.Context, uid string) (model.Role, error)
}

// InvestMetrics は投資トランザクションのメトリクス記録のインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type InvestMetrics interface {
	RecordInvestmentProcessed(projectID string)
	RecordInvestmentRejected(reason string)
	RecordInvestmentRetry(projectID string)
	RecordInvestLatency(duration time.Duration)
}

// Service は投資トランザクションのサービス層。
// バリデーション → ロール再検証 → 台帳追記 + カウンター加算（単一トランザクション）
// のフローを統括する。
type Service struct {
	investmentRepo repository.InvestmentRepository
	projectRepo    repository.ProjectRepository
	roleVerifier   RoleVerifier
	metrics        InvestMetrics
}

// NewService はServiceの新しいインスタンスを生成する。
// roleVerifierとmetricsはnilを許容する（nilの場合は各処理をスキップ）。
func NewService(
	investmentRepo repository.InvestmentRepository,
	projectRepo repository.ProjectRepository,
	roleVerifier RoleVerifier,
	metrics InvestMetrics,
) *Service {
	return &Service{
		investmentRepo: investmentRepo,
		projectRepo:    projectRepo,
		roleVerifier:   roleVerifier,
		metrics:        metrics,
	}
}

// InvestInput は投資実行の入力。
type InvestInput struct {
	ProjectID      string
	InvestorID     string
	Shares         int
	IdempotencyKey string // 空の場合はサーバー側で生成（再試行保護なし）
}

// InvestResult は投資実行の結果。
// Retriedは冪等キーにより既存の記録が返されたことを示す。
type InvestResult struct {
	Investment *model.Investment
	Retried    bool
}

// Invest は投資を実行する。
// フロー:
//  1. 入力バリデーション（shares >= 1）
//  2. 投資家ロールのサーバー側再検証
//  3. プロジェクトの存在確認と株価スナップショットの取得
//  4. TotalAmount = Shares × PricePerShare（セント単位の厳密な整数演算）
//  5. 台帳追記とcurrent_funding・investorsの原子的加算（単一SQLトランザクション）
//
// 同じ冪等キーでの再試行は既存の記録を返し、二重計上しない。
func (s *Service) Invest(ctx context.Context, input InvestInput) (*InvestResult, error) {
	start := time.Now()

	result, err := s.invest(ctx, input)

	if s.metrics != nil {
		s.metrics.RecordInvestLatency(time.Since(start))
		if err != nil {
			s.metrics.RecordInvestmentRejected(rejectReason(err))
		} else if result.Retried {
			s.metrics.RecordInvestmentRetry(input.ProjectID)
		} else {
			s.metrics.RecordInvestmentProcessed(input.ProjectID)
		}
	}

	return result, err
}

func (s *Service) invest(ctx context.Context, input InvestInput) (*InvestResult, error) {
	// 1. 入力バリデーション
	if input.Shares < 1 {
		return nil, model.NewInvalidSharesError(input.Shares)
	}
	if input.InvestorID == "" {
		return nil, model.NewMissingFieldError("investorId")
	}

	// 2. 投資家ロールのサーバー側再検証
	// ミドルウェアのガードとは独立に、書き込み直前にも検証する。
	if s.roleVerifier != nil {
		r, err := s.roleVerifier.Resolve(ctx, input.InvestorID)
		if err != nil {
			return nil, model.NewRoleUnresolvedError()
		}
		if r != model.RoleInvestor {
			return nil, model.NewRoleMismatchError(model.RoleInvestor)
		}
	}

	// 3. プロジェクトの存在確認と株価スナップショットの取得
	// 株価はクライアントからは受け取らず、常にサーバー側の現在値を使用する。
	project, err := s.projectRepo.FindByID(ctx, input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(input.ProjectID)
	}
	if project.PricePerShare <= 0 {
		return nil, model.NewInvalidSharePriceError()
	}

	// 4. 合計金額の算出（セント単位の厳密な整数演算）
	// int64を超える積は記録せずに拒否する（ラップした金額の永続化を防ぐ）
	totalAmount, ok := project.PricePerShare.MulShares(input.Shares)
	if !ok {
		return nil, model.NewInvalidSharesError(input.Shares)
	}

	idempotencyKey := input.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	inv := &model.Investment{
		ID:             uuid.New().String(),
		IdempotencyKey: idempotencyKey,
		ProjectID:      input.ProjectID,
		InvestorID:     input.InvestorID,
		Shares:         input.Shares,
		PricePerShare:  project.PricePerShare,
		TotalAmount:    totalAmount,
		CreatedAt:      time.Now(),
	}

	// 5. 台帳追記とカウンター加算（単一SQLトランザクション）
	recorded, created, err := s.investmentRepo.Record(ctx, inv)
	if err != nil {
		return nil, err
	}

	if !created {
		slog.Info("投資の再試行を検出",
			slog.String("idempotency_key", idempotencyKey),
			slog.String("investment_id", recorded.ID),
		)
	}

	return &InvestResult{
		Investment: recorded,
		Retried:    !created,
	}, nil
}

// ListByInvestor は指定投資家の投資一覧をプロジェクト情報付きで
// 新しい順で返す。
func (s *Service) ListByInvestor(ctx context.Context, investorID string) ([]model.InvestmentWithProject, error) {
	records, err := s.investmentRepo.ListByInvestor(ctx, investorID)
	if err != nil {
		return nil, fmt.Errorf("投資一覧の取得に失敗しました: %w", err)
	}
	return records, nil
}

// GetPortfolio は指定投資家のポートフォリオサマリーを返す。
func (s *Service) GetPortfolio(ctx context.Context, investorID string) (*Portfolio, error) {
	records, err := s.ListByInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	portfolio := Aggregate(records)
	return &portfolio, nil
}

// rejectReason はエラーからメトリクス用の拒否理由ラベルを導出する。
func rejectReason(err error) string {
	if apiErr, ok := err.(*model.APIError); ok {
		return apiErr.Code
	}
	return "INTERNAL"
}
