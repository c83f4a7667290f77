package guard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/fundman/internal/middleware"
	"github.com/hitoshi/fundman/internal/model"
)

// --- モック定義 ---

type mockRoleResolver struct {
	resolveFn func(ctx context.Context, uid string) (model.Role, error)
}

func (m *mockRoleResolver) Resolve(ctx context.Context, uid string) (model.Role, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, uid)
	}
	return model.RoleNone, nil
}

var _ RoleResolver = (*mockRoleResolver)(nil)

func serveWithGuard(resolver RoleResolver, required model.Role, uid string) (*httptest.ResponseRecorder, bool) {
	called := false
	handler := RequireRole(resolver, required)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if uid != "" {
		req = req.WithContext(middleware.ContextWithUID(req.Context(), uid))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

// --- テスト ---

func TestRequireRole_Granted(t *testing.T) {
	resolver := &mockRoleResolver{
		resolveFn: func(_ context.Context, _ string) (model.Role, error) {
			return model.RoleOwner, nil
		},
	}

	rec, called := serveWithGuard(resolver, model.RoleOwner, "uid-1")

	if !called {
		t.Error("next handler was not called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	rec, called := serveWithGuard(&mockRoleResolver{}, model.RoleOwner, "")

	if called {
		t.Error("next handler was called for unauthenticated request")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Header().Get("X-Redirect-To"); got != "/auth/login" {
		t.Errorf("X-Redirect-To = %q, want /auth/login", got)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body["code"])
	}
}

func TestRequireRole_RoleMismatch(t *testing.T) {
	resolver := &mockRoleResolver{
		resolveFn: func(_ context.Context, _ string) (model.Role, error) {
			return model.RoleInvestor, nil
		},
	}

	rec, called := serveWithGuard(resolver, model.RoleOwner, "uid-1")

	if called {
		t.Error("next handler was called for mismatched role")
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := rec.Header().Get("X-Redirect-To"); got != "/" {
		t.Errorf("X-Redirect-To = %q, want /", got)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["code"] != "ROLE_MISMATCH" {
		t.Errorf("code = %q, want ROLE_MISMATCH", body["code"])
	}
}

func TestRequireRole_RoleUnresolved(t *testing.T) {
	// プロフィール未作成（RoleNone）は拒否ではなく409で再試行を促す
	resolver := &mockRoleResolver{
		resolveFn: func(_ context.Context, _ string) (model.Role, error) {
			return model.RoleNone, nil
		},
	}

	rec, called := serveWithGuard(resolver, model.RoleInvestor, "uid-1")

	if called {
		t.Error("next handler was called for unresolved role")
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header is missing")
	}
}

func TestRequireRole_ResolverError(t *testing.T) {
	// ロール検索エラーは確定的な不一致として扱わず保留（409）にする
	resolver := &mockRoleResolver{
		resolveFn: func(_ context.Context, _ string) (model.Role, error) {
			return model.RoleNone, errors.New("db down")
		},
	}

	rec, called := serveWithGuard(resolver, model.RoleInvestor, "uid-1")

	if called {
		t.Error("next handler was called after resolver error")
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRequireRole_AuthenticationOnly(t *testing.T) {
	// RoleNoneを要求ロールとした場合は認証済みであれば許可する
	rec, called := serveWithGuard(&mockRoleResolver{}, model.RoleNone, "uid-1")

	if !called {
		t.Error("next handler was not called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
