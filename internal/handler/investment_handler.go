package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundman/internal/investment"
	"github.com/hitoshi/fundman/internal/middleware"
	"github.com/hitoshi/fundman/internal/model"
)

// idempotencyKeyHeader は再試行の二重計上を防ぐ冪等キーのリクエストヘッダー。
const idempotencyKeyHeader = "Idempotency-Key"

// InvestmentServiceInterface は投資ハンドラーが必要とするサービスインターフェース。
type InvestmentServiceInterface interface {
	Invest(ctx context.Context, input investment.InvestInput) (*investment.InvestResult, error)
	GetPortfolio(ctx context.Context, investorID string) (*investment.Portfolio, error)
}

// InvestmentHandler は投資とポートフォリオのHTTPハンドラー。
type InvestmentHandler struct {
	service InvestmentServiceInterface
}

// NewInvestmentHandler はInvestmentHandlerを生成する。
func NewInvestmentHandler(service InvestmentServiceInterface) *InvestmentHandler {
	return &InvestmentHandler{
		service: service,
	}
}

// investRequest は投資実行リクエストのボディ。
type investRequest struct {
	Shares         int    `json:"shares"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// investmentResponse は投資記録のAPIレスポンス。
// 金額フィールドはすべてセント単位の整数。
type investmentResponse struct {
	ID              string `json:"id"`
	ProjectID       string `json:"projectId"`
	ProjectTitle    string `json:"projectTitle,omitempty"`
	ProjectCategory string `json:"projectCategory,omitempty"`
	Shares          int    `json:"shares"`
	PricePerShare   int64  `json:"pricePerShare"`
	TotalAmount     int64  `json:"totalAmount"`
	CreatedAt       string `json:"createdAt"`
}

// portfolioResponse はポートフォリオサマリーのAPIレスポンス。
// portfolioValueは投資元本×1.15のシミュレーション値。
type portfolioResponse struct {
	TotalInvested        int64                `json:"totalInvested"`
	TotalShares          int                  `json:"totalShares"`
	UniqueProjects       int                  `json:"uniqueProjects"`
	AllocationByCategory map[string]int64     `json:"allocationByCategory"`
	PortfolioValue       int64                `json:"portfolioValue"`
	GrowthPercent        float64              `json:"growthPercent"`
	Investments          []investmentResponse `json:"investments"`
}

// Invest は投資実行を処理する。
// POST /api/projects/{id}/invest（investorロール必須）
// 冪等キーはボディのidempotencyKeyまたはIdempotency-Keyヘッダーで指定する。
// 同じキーでの再試行は200で既存の記録を返す（初回は201）。
func (h *InvestmentHandler) Invest(w http.ResponseWriter, r *http.Request) {
	uid, err := middleware.UIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	projectID := chi.URLParam(r, "id")

	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = r.Header.Get(idempotencyKeyHeader)
	}

	result, err := h.service.Invest(r.Context(), investment.InvestInput{
		ProjectID:      projectID,
		InvestorID:     uid,
		Shares:         req.Shares,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	statusCode := http.StatusCreated
	if result.Retried {
		// 冪等キーにより既存の記録を返した場合
		statusCode = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(toInvestmentResponse(result.Investment))
}

// GetPortfolio はログイン中投資家のポートフォリオサマリーを返す。
// GET /api/portfolio（investorロール必須）
func (h *InvestmentHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	uid, err := middleware.UIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	portfolio, err := h.service.GetPortfolio(r.Context(), uid)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPortfolioResponse(portfolio))
}

// --- ヘルパー関数 ---

// toInvestmentResponse はmodel.InvestmentからAPIレスポンスに変換する。
func toInvestmentResponse(inv *model.Investment) investmentResponse {
	return investmentResponse{
		ID:            inv.ID,
		ProjectID:     inv.ProjectID,
		Shares:        inv.Shares,
		PricePerShare: int64(inv.PricePerShare),
		TotalAmount:   int64(inv.TotalAmount),
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
}

// toPortfolioResponse はinvestment.PortfolioからAPIレスポンスに変換する。
func toPortfolioResponse(p *investment.Portfolio) portfolioResponse {
	allocation := make(map[string]int64, len(p.AllocationByCategory))
	for category, amount := range p.AllocationByCategory {
		allocation[category] = int64(amount)
	}

	investments := make([]investmentResponse, 0, len(p.Investments))
	for _, r := range p.Investments {
		resp := toInvestmentResponse(&r.Investment)
		resp.ProjectTitle = r.ProjectTitle
		resp.ProjectCategory = r.ProjectCategory
		investments = append(investments, resp)
	}

	return portfolioResponse{
		TotalInvested:        int64(p.TotalInvested),
		TotalShares:          p.TotalShares,
		UniqueProjects:       p.UniqueProjects,
		AllocationByCategory: allocation,
		PortfolioValue:       int64(p.PortfolioValue),
		GrowthPercent:        p.GrowthPercent,
		Investments:          investments,
	}
}
