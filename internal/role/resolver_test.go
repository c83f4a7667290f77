package role

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/fundman/internal/model"
)

// --- モック定義 ---

type mockProfileFinder struct {
	mu          sync.Mutex
	findByUIDFn func(ctx context.Context, uid string) (*model.Profile, error)
	calls       int
}

func (m *mockProfileFinder) FindByUID(ctx context.Context, uid string) (*model.Profile, error) {
	m.mu.Lock()
	m.calls++
	fn := m.findByUIDFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, uid)
	}
	return nil, nil
}

func (m *mockProfileFinder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ ProfileFinder = (*mockProfileFinder)(nil)

// waitForResolution は非同期検索の完了をポーリングで待つ。
func waitForResolution(t *testing.T, r *Resolver) Resolution {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res := r.Current()
		if res.Resolved {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("resolution did not complete in time")
	return Resolution{}
}

// --- テスト ---

func TestResolver_InitialState(t *testing.T) {
	r := NewResolver(&mockProfileFinder{}, nil)
	defer r.Close()

	res := r.Current()
	if !res.Resolved || res.Role != model.RoleNone {
		t.Errorf("Current() = %+v, want resolved RoleNone", res)
	}
}

func TestResolver_SetIdentityNil(t *testing.T) {
	finder := &mockProfileFinder{}
	r := NewResolver(finder, nil)
	defer r.Close()

	// nilアイデンティティは検索なしで同期的にRoleNoneへ確定する
	r.SetIdentity(nil)

	res := r.Current()
	if !res.Resolved || res.Role != model.RoleNone {
		t.Errorf("Current() = %+v, want resolved RoleNone", res)
	}
	if finder.callCount() != 0 {
		t.Errorf("FindByUID calls = %d, want 0", finder.callCount())
	}
}

func TestResolver_ResolvesRole(t *testing.T) {
	finder := &mockProfileFinder{
		findByUIDFn: func(_ context.Context, uid string) (*model.Profile, error) {
			return &model.Profile{UID: uid, Role: model.RoleOwner}, nil
		},
	}
	r := NewResolver(finder, nil)
	defer r.Close()

	r.SetIdentity(&model.Identity{UID: "uid-1"})

	res := waitForResolution(t, r)
	if res.Role != model.RoleOwner {
		t.Errorf("role = %q, want %q", res.Role, model.RoleOwner)
	}
}

func TestResolver_ProfileMissing(t *testing.T) {
	// プロフィール未作成はエラーではなく、RoleNoneで確定する
	finder := &mockProfileFinder{
		findByUIDFn: func(_ context.Context, _ string) (*model.Profile, error) {
			return nil, nil
		},
	}
	r := NewResolver(finder, nil)
	defer r.Close()

	r.SetIdentity(&model.Identity{UID: "uid-1"})

	res := waitForResolution(t, r)
	if res.Role != model.RoleNone {
		t.Errorf("role = %q, want RoleNone", res.Role)
	}
}

func TestResolver_LookupError(t *testing.T) {
	finder := &mockProfileFinder{
		findByUIDFn: func(_ context.Context, _ string) (*model.Profile, error) {
			return nil, errors.New("db down")
		},
	}
	r := NewResolver(finder, nil)
	defer r.Close()

	r.SetIdentity(&model.Identity{UID: "uid-1"})

	// 検索失敗時はロール未確定のまま（確定的な不一致として扱わない）
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if finder.callCount() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	res := r.Current()
	if res.Resolved {
		t.Errorf("Current() = %+v, want unresolved after lookup error", res)
	}
}

func TestResolver_StaleLookupDiscarded(t *testing.T) {
	// U1の検索完了前にU2へ切り替わった場合、U1の結果は破棄される
	release := make(chan struct{})
	finder := &mockProfileFinder{
		findByUIDFn: func(_ context.Context, uid string) (*model.Profile, error) {
			if uid == "u1" {
				<-release // U1の検索を保留
				return &model.Profile{UID: uid, Role: model.RoleOwner}, nil
			}
			return &model.Profile{UID: uid, Role: model.RoleInvestor}, nil
		},
	}
	r := NewResolver(finder, nil)
	defer r.Close()

	r.SetIdentity(&model.Identity{UID: "u1"})
	r.SetIdentity(&model.Identity{UID: "u2"})

	res := waitForResolution(t, r)
	if res.Role != model.RoleInvestor {
		t.Fatalf("role = %q, want %q", res.Role, model.RoleInvestor)
	}

	// 遅延していたU1の検索が完了してもU2の状態を上書きしない
	close(release)
	time.Sleep(50 * time.Millisecond)

	res = r.Current()
	if res.Role != model.RoleInvestor {
		t.Errorf("role after stale lookup = %q, want %q", res.Role, model.RoleInvestor)
	}
}

func TestResolver_CacheSkipsLookup(t *testing.T) {
	finder := &mockProfileFinder{
		findByUIDFn: func(_ context.Context, uid string) (*model.Profile, error) {
			return &model.Profile{UID: uid, Role: model.RoleInvestor}, nil
		},
	}
	r := NewResolver(finder, nil)
	defer r.Close()

	r.SetIdentity(&model.Identity{UID: "uid-1"})
	waitForResolution(t, r)

	calls := finder.callCount()

	// プロフィールは不変なので、同一UIDの再設定は検索を省略する
	r.SetIdentity(nil)
	r.SetIdentity(&model.Identity{UID: "uid-1"})

	res := r.Current()
	if !res.Resolved || res.Role != model.RoleInvestor {
		t.Errorf("Current() = %+v, want resolved investor from cache", res)
	}
	if finder.callCount() != calls {
		t.Errorf("FindByUID calls = %d, want %d (cache hit)", finder.callCount(), calls)
	}
}

func TestResolve_Synchronous(t *testing.T) {
	finder := &mockProfileFinder{
		findByUIDFn: func(_ context.Context, uid string) (*model.Profile, error) {
			if uid == "owner-1" {
				return &model.Profile{UID: uid, Role: model.RoleOwner}, nil
			}
			return nil, nil
		},
	}
	r := NewResolver(finder, nil)
	defer r.Close()

	role, err := r.Resolve(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if role != model.RoleOwner {
		t.Errorf("role = %q, want %q", role, model.RoleOwner)
	}

	// プロフィール未作成はRoleNoneを返し、エラーにしない
	role, err = r.Resolve(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if role != model.RoleNone {
		t.Errorf("role = %q, want RoleNone", role)
	}

	// 2回目はキャッシュから返る
	calls := finder.callCount()
	if _, err := r.Resolve(context.Background(), "owner-1"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if finder.callCount() != calls {
		t.Errorf("FindByUID calls = %d, want %d (cache hit)", finder.callCount(), calls)
	}
}

func TestResolve_LookupError(t *testing.T) {
	finder := &mockProfileFinder{
		findByUIDFn: func(_ context.Context, _ string) (*model.Profile, error) {
			return nil, errors.New("db down")
		},
	}
	r := NewResolver(finder, nil)
	defer r.Close()

	if _, err := r.Resolve(context.Background(), "uid-1"); err == nil {
		t.Error("Resolve() error = nil, want error")
	}
}
