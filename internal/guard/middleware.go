package guard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fundman/internal/middleware"
	"github.com/hitoshi/fundman/internal/model"
)

// RoleResolver はアクセス制御に必要なロール解決インターフェース。
// role.Resolverの部分集合として定義する。
type RoleResolver interface {
	Resolve(ctx context.Context, uid string) (model.Role, error)
}

// redirectHeader は拒否時のリダイレクト先を伝えるレスポンスヘッダー。
// SPAクライアントはこの値に従って画面遷移する。
const redirectHeader = "X-Redirect-To"

// RequireRole は指定ロールを要求するアクセス制御ミドルウェアを返す。
// セッションミドルウェアの後段に配置すること。
//
// 判定は状態機械（Evaluate）に委譲し、HTTPへ次のように写像する:
//   - DENIED（未認証） → 401 + リダイレクト先ログイン
//   - DENIED（ロール不一致） → 403 + リダイレクト先ホーム
//   - PENDING（ロール未解決） → 409 + Retry-After（拒否ではない）
//   - GRANTED → 後続ハンドラーへ
//
// ロール検索のエラーは診断ログにのみ記録し、未解決として扱う。
func RequireRole(resolver RoleResolver, required model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			in := Input{RequiredRole: required}

			if uid, err := middleware.UIDFromContext(r.Context()); err == nil && uid != "" {
				in.Identity = &model.Identity{UID: uid}

				role, err := resolver.Resolve(r.Context(), uid)
				if err != nil {
					slog.Error("role resolution failed",
						slog.String("uid", uid),
						slog.String("error", err.Error()),
					)
					role = model.RoleNone
				}
				in.Role = role
			}

			decision := Evaluate(in)

			switch decision.State {
			case StateGranted:
				next.ServeHTTP(w, r)

			case StatePending:
				w.Header().Set("Retry-After", "1")
				writeGuardError(w, http.StatusConflict, model.NewRoleUnresolvedError())

			case StateDenied:
				w.Header().Set(redirectHeader, string(decision.Redirect))
				if decision.Redirect == RedirectLogin {
					writeGuardError(w, http.StatusUnauthorized, &model.APIError{
						Code:     "UNAUTHORIZED",
						Message:  "認証が必要です。",
						Category: "auth",
						Action:   "ログインしてください。",
					})
					return
				}
				writeGuardError(w, http.StatusForbidden, model.NewRoleMismatchError(required))
			}
		})
	}
}

// writeGuardError は統一エラーフォーマットで判定結果を書き込む。
func writeGuardError(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"code":     apiErr.Code,
		"message":  apiErr.Message,
		"category": apiErr.Category,
		"action":   apiErr.Action,
	})
}
