package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundman/internal/middleware"
	"github.com/hitoshi/fundman/internal/model"
	"github.com/hitoshi/fundman/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	Create(ctx context.Context, ownerID string, input project.CreateInput) (*model.Project, error)
	Get(ctx context.Context, projectID string) (*model.Project, error)
	List(ctx context.Context) ([]*model.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Project, error)
	Update(ctx context.Context, projectID string, requesterUID string, update model.ProjectUpdate) (*model.Project, error)
	Delete(ctx context.Context, projectID string, requesterUID string) error
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{
		service: service,
	}
}

// createProjectRequest はプロジェクト作成リクエストのボディ。
// 金額フィールドはすべてセント単位の整数。
type createProjectRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	FullDescription string `json:"fullDescription"`
	Category        string `json:"category"`
	FundingGoal     int64  `json:"fundingGoal"`
	PricePerShare   int64  `json:"pricePerShare"`
	SiteURL         string `json:"siteUrl"`
}

// updateProjectRequest はプロジェクト部分更新リクエストのボディ。
// nilフィールドは変更しない。
type updateProjectRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	FullDescription *string `json:"fullDescription"`
	Category        *string `json:"category"`
	FundingGoal     *int64  `json:"fundingGoal"`
	PricePerShare   *int64  `json:"pricePerShare"`
	SiteURL         *string `json:"siteUrl"`
}

// projectResponse はプロジェクト情報のAPIレスポンス。
type projectResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	FullDescription string `json:"fullDescription"`
	Category        string `json:"category"`
	FundingGoal     int64  `json:"fundingGoal"`
	CurrentFunding  int64  `json:"currentFunding"`
	PricePerShare   int64  `json:"pricePerShare"`
	OwnerID         string `json:"ownerId"`
	OwnerName       string `json:"ownerName"`
	SiteURL         string `json:"siteUrl,omitempty"`
	HasFavicon      bool   `json:"hasFavicon"`
	Investors       int    `json:"investors"`
	CreatedAt       string `json:"createdAt"`
}

// List は全プロジェクト一覧を返す（新しい順）。
// GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponses(projects))
}

// Get はプロジェクト詳細を返す。
// GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// GetFavicon はプロジェクトのfavicon画像を返す。
// GET /api/projects/{id}/favicon
func (h *ProjectHandler) GetFavicon(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if len(p.FaviconData) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	mimeType := p.FaviconMime
	if mimeType == "" {
		mimeType = "image/x-icon"
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(p.FaviconData)
}

// Create は新しいプロジェクトを登録する。
// POST /api/projects（ownerロール必須）
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := middleware.UIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	p, err := h.service.Create(r.Context(), uid, project.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		FullDescription: req.FullDescription,
		Category:        req.Category,
		FundingGoal:     model.Money(req.FundingGoal),
		PricePerShare:   model.Money(req.PricePerShare),
		SiteURL:         req.SiteURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// Update はプロジェクトを部分更新する。
// PATCH /api/projects/{id}（ownerロール + 所有権必須）
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, err := middleware.UIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	projectID := chi.URLParam(r, "id")

	var req updateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	update := model.ProjectUpdate{
		Title:           req.Title,
		Description:     req.Description,
		FullDescription: req.FullDescription,
		Category:        req.Category,
		SiteURL:         req.SiteURL,
	}
	if req.FundingGoal != nil {
		goal := model.Money(*req.FundingGoal)
		update.FundingGoal = &goal
	}
	if req.PricePerShare != nil {
		price := model.Money(*req.PricePerShare)
		update.PricePerShare = &price
	}

	p, err := h.service.Update(r.Context(), projectID, uid, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// Delete はプロジェクトを削除する。
// DELETE /api/projects/{id}（ownerロール + 所有権必須）
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, err := middleware.UIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	projectID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), projectID, uid); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMine はログイン中オーナーのプロジェクト一覧を返す（新しい順）。
// GET /api/projects/mine（ownerロール必須）
func (h *ProjectHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, err := middleware.UIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	projects, err := h.service.ListByOwner(r.Context(), uid)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponses(projects))
}

// --- ヘルパー関数 ---

// toProjectResponse はmodel.ProjectからAPIレスポンスに変換する。
func toProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		FullDescription: p.FullDescription,
		Category:        p.Category,
		FundingGoal:     int64(p.FundingGoal),
		CurrentFunding:  int64(p.CurrentFunding),
		PricePerShare:   int64(p.PricePerShare),
		OwnerID:         p.OwnerID,
		OwnerName:       p.OwnerName,
		SiteURL:         p.SiteURL,
		HasFavicon:      len(p.FaviconData) > 0,
		Investors:       p.Investors,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}

// toProjectResponses はプロジェクトのスライスをAPIレスポンスに変換する。
// 空スライスの場合もnullではなく[]を返す。
func toProjectResponses(projects []*model.Project) []projectResponse {
	responses := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		responses = append(responses, toProjectResponse(p))
	}
	return responses
}
