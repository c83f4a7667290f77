// Package role は認証済みアイデンティティからロールを導出する。
package role

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/fundman/internal/auth"
	"github.com/hitoshi/fundman/internal/model"
)

// ProfileFinder はロール解決に必要なプロフィール検索インターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type ProfileFinder interface {
	FindByUID(ctx context.Context, uid string) (*model.Profile, error)
}

// Resolution はロール解決の結果を表す。
// Resolvedがfalseの間はロールが未確定（取得中または取得失敗）であり、
// アクセス制御上は確定的な不一致として扱ってはならない。
// プロフィール未作成の場合はResolved=trueかつRole=RoleNoneとなる
// （「ロール未プロビジョニング」状態。エラーではない）。
type Resolution struct {
	Role     model.Role
	Resolved bool
}

// lookupTimeout は非同期ロール解決のタイムアウト。
const lookupTimeout = 10 * time.Second

// Resolver は現在のアイデンティティに対応するロールを解決・追跡する。
//
// アイデンティティの変更ごとに世代番号を進め、古い世代の検索結果が
// 新しいアイデンティティの状態を上書きすることを防ぐ
// （2つの検索が競合した場合の順序逆転ガード）。
//
// プロフィールはサインアップ後不変のため、解決済みロールは
// プロセス内キャッシュに保持し、同一UIDの再解決を省略する。
type Resolver struct {
	profiles ProfileFinder

	mu      sync.Mutex
	gen     uint64
	uid     string
	current Resolution
	cache   map[string]model.Role

	unsub func()
}

// NewResolver はResolverを生成する。
// notifierが指定された場合は認証状態変化を購読し、
// サインイン・サインアウトに追従してアイデンティティを切り替える。
func NewResolver(profiles ProfileFinder, notifier *auth.Notifier) *Resolver {
	r := &Resolver{
		profiles: profiles,
		current:  Resolution{Role: model.RoleNone, Resolved: true},
		cache:    make(map[string]model.Role),
	}

	if notifier != nil {
		r.unsub = notifier.Subscribe(func(event auth.StateEvent) {
			r.SetIdentity(event.Identity)
		})
	}

	return r
}

// SetIdentity は追跡対象のアイデンティティを切り替える。
// nilの場合はフェッチを行わず、ロールは同期的にRoleNoneへ確定する。
// 非nilの場合はバックグラウンドで1回のプロフィール検索を発行する。
// 検索完了前に再度SetIdentityが呼ばれた場合、先行する検索の結果は破棄される。
func (r *Resolver) SetIdentity(identity *model.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++

	if identity == nil {
		r.uid = ""
		r.current = Resolution{Role: model.RoleNone, Resolved: true}
		return
	}

	r.uid = identity.UID

	if cached, ok := r.cache[identity.UID]; ok {
		r.current = Resolution{Role: cached, Resolved: true}
		return
	}

	r.current = Resolution{Role: model.RoleNone, Resolved: false}
	go r.lookup(r.gen, identity.UID)
}

// lookup はプロフィール検索を実行し、世代が一致する場合のみ状態を反映する。
// 検索エラーは診断ログにのみ記録し、ロールは未確定のままとする
// （呼び出し側のUIは描画を継続できる）。
func (r *Resolver) lookup(gen uint64, uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	profile, err := r.profiles.FindByUID(ctx, uid)

	r.mu.Lock()
	defer r.mu.Unlock()

	// 順序逆転ガード: 検索中にアイデンティティが変わっていたら結果を捨てる
	if gen != r.gen {
		return
	}

	if err != nil {
		slog.Error("role lookup failed",
			slog.String("uid", uid),
			slog.String("error", err.Error()),
		)
		r.current = Resolution{Role: model.RoleNone, Resolved: false}
		return
	}

	if profile == nil {
		// プロフィール未作成: ロール未プロビジョニング状態として確定
		slog.Warn("profile not found for identity", slog.String("uid", uid))
		r.current = Resolution{Role: model.RoleNone, Resolved: true}
		return
	}

	r.cache[uid] = profile.Role
	r.current = Resolution{Role: profile.Role, Resolved: true}
}

// Current は現在のロール解決状態を返す。
func (r *Resolver) Current() Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Resolve は指定UIDのロールを同期的に解決する。リクエスト単位の
// アクセス制御で使用する。プロフィール未作成の場合はRoleNoneを返す
// （エラーにしない）。検索エラーのみエラーとして返す。
func (r *Resolver) Resolve(ctx context.Context, uid string) (model.Role, error) {
	r.mu.Lock()
	if cached, ok := r.cache[uid]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	profile, err := r.profiles.FindByUID(ctx, uid)
	if err != nil {
		return model.RoleNone, err
	}
	if profile == nil {
		return model.RoleNone, nil
	}

	r.mu.Lock()
	r.cache[uid] = profile.Role
	r.mu.Unlock()

	return profile.Role, nil
}

// Close は認証状態変化の購読を解放する。
func (r *Resolver) Close() {
	if r.unsub != nil {
		r.unsub()
	}
}
