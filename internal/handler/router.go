package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundman/internal/guard"
	"github.com/hitoshi/fundman/internal/middleware"
	"github.com/hitoshi/fundman/internal/model"
	"github.com/hitoshi/fundman/internal/role"
)

// HealthChecker はヘルスチェックでのDB疎通確認のインターフェース。
// *sql.DBがそのまま実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// AuthStateReader は認証状態通知ストリームの直近の観測値を読み取る。
// *auth.StateStoreが実装する。
type AuthStateReader interface {
	Current() (identity *model.Identity, loading bool)
}

// RoleStateReader は直近のロール解決状態を読み取る。
// *role.Resolverが実装する。
type RoleStateReader interface {
	Current() role.Resolution
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.HTTPStatusRecorder
	Logger            *slog.Logger

	// アクセスガード
	RoleResolver guard.RoleResolver

	// 診断用の状態リーダー（nil許容）
	AuthState AuthStateReader
	RoleState RoleStateReader

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロジェクト
	ProjectService ProjectServiceInterface

	// 投資・ポートフォリオ
	InvestmentService InvestmentServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging → CSRF
//	→ (認証ルートのみ) Session → RateLimit(General) → Guard(RequireRole)
//
// 認証ルート（/auth/*）と公開読み取りルートはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 共通ミドルウェア（全ルートに効く）
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	projectHandler := NewProjectHandler(deps.ProjectService)
	investmentHandler := NewInvestmentHandler(deps.InvestmentService)

	// --- 認証不要のルート ---

	// ヘルスチェック（DB疎通確認を含む）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	// 認証状態診断: 通知ストリームとロールリゾルバーの直近の観測値を返す。
	// 購読がサインイン・サインアウトに追従しているかの確認に使う。
	r.Get("/health/auth", func(w http.ResponseWriter, req *http.Request) {
		state := struct {
			SignedIn     bool   `json:"signed_in"`
			Loading      bool   `json:"loading"`
			UID          string `json:"uid,omitempty"`
			Role         string `json:"role,omitempty"`
			RoleResolved bool   `json:"role_resolved"`
		}{}
		if deps.AuthState != nil {
			identity, loading := deps.AuthState.Current()
			state.Loading = loading
			if identity != nil {
				state.SignedIn = true
				state.UID = identity.UID
			}
		}
		if deps.RoleState != nil {
			res := deps.RoleState.Current()
			state.Role = string(res.Role)
			state.RoleResolved = res.Resolved
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	})

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/login", authHandler.SignIn)
		r.Post("/logout", authHandler.SignOut)
		r.Get("/me", authHandler.Me)
	})

	// 公開読み取りルート（プロジェクト一覧・詳細）
	r.Get("/api/projects", projectHandler.List)
	r.Get("/api/projects/{id}", projectHandler.Get)
	r.Get("/api/projects/{id}/favicon", projectHandler.GetFavicon)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → Guard
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// オーナー専用ルート
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireRole(deps.RoleResolver, model.RoleOwner))

			r.Post("/api/projects", projectHandler.Create)
			r.Get("/api/projects/mine", projectHandler.ListMine)
			r.Patch("/api/projects/{id}", projectHandler.Update)
			r.Delete("/api/projects/{id}", projectHandler.Delete)
		})

		// 投資家専用ルート
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireRole(deps.RoleResolver, model.RoleInvestor))

			// POST /api/projects/{id}/invest - 投資実行（専用レート制限を追加）
			r.With(deps.RateLimiter.InvestMiddleware()).Post("/api/projects/{id}/invest", investmentHandler.Invest)

			r.Get("/api/portfolio", investmentHandler.GetPortfolio)
		})
	})

	return r
}
