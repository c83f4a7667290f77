// Package project はプロジェクト登録・管理のドメインロジックを提供する。
package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fundman/internal/model"
	"github.com/hitoshi/fundman/internal/repository"
)

// Sanitizer はHTMLサニタイズのインターフェース。
// security.ContentSanitizerServiceを抽象化してテスタビリティを向上させる。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// URLValidator はサイトURLの事前検証のインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はプロジェクト管理のサービス層。
// バリデーション → サニタイズ → 保存 → favicon取得のフローを統括する。
type Service struct {
	projectRepo    repository.ProjectRepository
	profileRepo    repository.ProfileRepository
	sanitizer      Sanitizer
	urlValidator   URLValidator
	faviconFetcher FaviconFetcherService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	projectRepo repository.ProjectRepository,
	profileRepo repository.ProfileRepository,
	sanitizer Sanitizer,
	urlValidator URLValidator,
	faviconFetcher FaviconFetcherService,
) *Service {
	return &Service{
		projectRepo:    projectRepo,
		profileRepo:    profileRepo,
		sanitizer:      sanitizer,
		urlValidator:   urlValidator,
		faviconFetcher: faviconFetcher,
	}
}

// CreateInput はプロジェクト作成の入力。
type CreateInput struct {
	Title           string
	Description     string
	FullDescription string
	Category        string
	FundingGoal     model.Money
	PricePerShare   model.Money
	SiteURL         string
}

// Create は新しいプロジェクトを登録する。
// フロー: バリデーション → オーナー名取得 → サニタイズ → 保存 → favicon取得
// current_fundingとinvestorsは必ず0で初期化される。
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*model.Project, error) {
	// 1. 入力バリデーション
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	// 2. オーナー名の非正規化用にプロフィールを取得
	ownerProfile, err := s.profileRepo.FindByUID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("オーナープロフィールの取得に失敗しました: %w", err)
	}
	if ownerProfile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	// 3. サイトURLの事前検証（任意項目）
	if input.SiteURL != "" && s.urlValidator != nil {
		if err := s.urlValidator.ValidateURL(input.SiteURL); err != nil {
			return nil, model.NewInvalidSiteURLError(err.Error())
		}
	}

	// 4. 詳細説明のHTMLサニタイズ
	fullDescription := input.FullDescription
	if s.sanitizer != nil {
		fullDescription = s.sanitizer.Sanitize(fullDescription)
	}

	project := &model.Project{
		ID:              uuid.New().String(),
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		FullDescription: fullDescription,
		Category:        input.Category,
		FundingGoal:     input.FundingGoal,
		CurrentFunding:  0,
		PricePerShare:   input.PricePerShare,
		OwnerID:         ownerID,
		OwnerName:       ownerProfile.DisplayName,
		SiteURL:         input.SiteURL,
		Investors:       0,
		CreatedAt:       time.Now(),
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("プロジェクトの保存に失敗しました: %w", err)
	}

	// 5. favicon取得（取得失敗時はnullとして保存）
	s.fetchAndSaveFavicon(ctx, project)

	return project, nil
}

// Get はプロジェクトを取得する。見つからない場合はエラーを返す。
func (s *Service) Get(ctx context.Context, projectID string) (*model.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	return project, nil
}

// List は全プロジェクトを新しい順で返す。公開エンドポイント用。
func (s *Service) List(ctx context.Context) ([]*model.Project, error) {
	projects, err := s.projectRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// ListByOwner は指定オーナーのプロジェクトを新しい順で返す。
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*model.Project, error) {
	projects, err := s.projectRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// Update はプロジェクトを部分更新する。
// 要求元がオーナー本人でない場合は拒否する。
// current_fundingとinvestorsはこの経路では変更できない。
func (s *Service) Update(ctx context.Context, projectID string, requesterUID string, update model.ProjectUpdate) (*model.Project, error) {
	// 1. 存在確認と所有権チェック
	existing, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	if existing.OwnerID != requesterUID {
		return nil, model.NewNotProjectOwnerError(projectID)
	}

	// 2. 変更フィールドのバリデーション
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	// 3. サイトURLの事前検証
	if update.SiteURL != nil && *update.SiteURL != "" && s.urlValidator != nil {
		if err := s.urlValidator.ValidateURL(*update.SiteURL); err != nil {
			return nil, model.NewInvalidSiteURLError(err.Error())
		}
	}

	// 4. 詳細説明のHTMLサニタイズ
	if update.FullDescription != nil && s.sanitizer != nil {
		sanitized := s.sanitizer.Sanitize(*update.FullDescription)
		update.FullDescription = &sanitized
	}

	updated, err := s.projectRepo.Update(ctx, projectID, update)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}

	// 5. サイトURLが変更された場合はfaviconを更新
	if update.SiteURL != nil && *update.SiteURL != existing.SiteURL {
		s.fetchAndSaveFavicon(ctx, updated)
	}

	return updated, nil
}

// Delete はプロジェクトを削除する。
// 要求元がオーナー本人でない場合は拒否する。
func (s *Service) Delete(ctx context.Context, projectID string, requesterUID string) error {
	existing, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return model.NewProjectNotFoundError(projectID)
	}
	if existing.OwnerID != requesterUID {
		return model.NewNotProjectOwnerError(projectID)
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}

	return nil
}

// RefreshFavicon はサイトURLを持つ全プロジェクトのfaviconを再取得する。
// faviconバッチワーカーから呼び出される。処理したプロジェクト数を返す。
func (s *Service) RefreshFavicon(ctx context.Context) (int, error) {
	projects, err := s.projectRepo.ListWithSiteURL(ctx)
	if err != nil {
		return 0, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}

	refreshed := 0
	for _, p := range projects {
		select {
		case <-ctx.Done():
			return refreshed, ctx.Err()
		default:
		}
		s.fetchAndSaveFavicon(ctx, p)
		refreshed++
	}

	return refreshed, nil
}

// fetchAndSaveFavicon はプロジェクトのサイトURLからfaviconを取得し保存する。
// 取得失敗はプロジェクト操作の成否に影響させない（ログのみ）。
func (s *Service) fetchAndSaveFavicon(ctx context.Context, project *model.Project) {
	if project.SiteURL == "" || s.faviconFetcher == nil {
		return
	}

	data, mimeType, err := s.faviconFetcher.FetchFaviconForSite(ctx, project.SiteURL)
	if err != nil || data == nil {
		return
	}

	if err := s.projectRepo.UpdateFavicon(ctx, project.ID, data, mimeType); err != nil {
		slog.Warn("faviconの保存に失敗",
			slog.String("project_id", project.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	project.FaviconData = data
	project.FaviconMime = mimeType
}

// validateCreateInput はプロジェクト作成入力を検証する。
func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return model.NewMissingFieldError("title")
	}
	if strings.TrimSpace(input.Description) == "" {
		return model.NewMissingFieldError("description")
	}
	if !model.IsValidCategory(input.Category) {
		return model.NewInvalidCategoryError(input.Category)
	}
	if input.FundingGoal <= 0 {
		return model.NewInvalidFundingGoalError()
	}
	if input.PricePerShare <= 0 {
		return model.NewInvalidSharePriceError()
	}
	return nil
}

// validateUpdate は部分更新の変更フィールドを検証する。
func validateUpdate(update model.ProjectUpdate) error {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return model.NewMissingFieldError("title")
	}
	if update.Description != nil && strings.TrimSpace(*update.Description) == "" {
		return model.NewMissingFieldError("description")
	}
	if update.Category != nil && !model.IsValidCategory(*update.Category) {
		return model.NewInvalidCategoryError(*update.Category)
	}
	if update.FundingGoal != nil && *update.FundingGoal <= 0 {
		return model.NewInvalidFundingGoalError()
	}
	if update.PricePerShare != nil && *update.PricePerShare <= 0 {
		return model.NewInvalidSharePriceError()
	}
	return nil
}
