// Package guard はロールに基づくアクセス制御の判定を提供する。
//
// 判定はPENDING・DENIED・GRANTEDの明示的な3状態マシンとして表現する。
// セッションとロールは独立に解決される2つの非同期シグナルであり、
// 真偽値フラグの組み合わせで判定すると「ロール解決が遅れているだけの
// 正当なユーザーを誤って弾く」競合が生じるため、状態機械として固定する。
package guard

import "github.com/hitoshi/fundman/internal/model"

// State はアクセス判定の状態を表す。
type State string

const (
	// StatePending はセッションまたはロールが解決中であることを示す。
	// 呼び出し側は待機表示を行い、拒否してはならない。
	StatePending State = "pending"
	// StateDenied はアクセス拒否を示す。リダイレクト先が併せて決定される。
	StateDenied State = "denied"
	// StateGranted はアクセス許可を示す。
	StateGranted State = "granted"
)

// RedirectTarget は拒否時のリダイレクト先を表す。
type RedirectTarget string

const (
	// RedirectNone はリダイレクト不要を示す。
	RedirectNone RedirectTarget = ""
	// RedirectLogin は未認証ユーザーのログインページへの誘導を示す。
	RedirectLogin RedirectTarget = "/auth/login"
	// RedirectHome はロール不一致ユーザーのホームへの誘導を示す。
	RedirectHome RedirectTarget = "/"
)

// Input はアクセス判定の入力を表す。
type Input struct {
	// Loading はセッションの読み込みが完了していないことを示す。
	Loading bool
	// Identity は認証済みアイデンティティ。未認証の場合はnil。
	Identity *model.Identity
	// Role は解決済みロール。未解決の場合はRoleNone。
	Role model.Role
	// RequiredRole は要求ロール。RoleNoneの場合は認証のみを要求する。
	RequiredRole model.Role
}

// Decision はアクセス判定の結果を表す。
type Decision struct {
	State    State
	Redirect RedirectTarget
}

// Evaluate はアクセス判定を行う。
//
// 遷移規則:
//   - セッション読み込み中 → PENDING
//   - 読み込み完了かつ未認証 → DENIED（ログインへ）
//   - 認証済みかつ要求ロールなし → GRANTED
//   - 認証済みかつロールが要求ロールと一致 → GRANTED
//   - 認証済みかつロールが確定的に別ロール → DENIED（ホームへ）
//   - 認証済みかつロール未解決（RoleNone） → PENDING
//
// 最後の規則が重要: サインイン済みユーザーのロールがまだ解決されて
// いない間は、確定的な不一致とは区別してPENDINGに留める。
func Evaluate(in Input) Decision {
	if in.Loading {
		return Decision{State: StatePending, Redirect: RedirectNone}
	}

	if in.Identity == nil {
		return Decision{State: StateDenied, Redirect: RedirectLogin}
	}

	if in.RequiredRole == model.RoleNone {
		return Decision{State: StateGranted, Redirect: RedirectNone}
	}

	if in.Role == in.RequiredRole {
		return Decision{State: StateGranted, Redirect: RedirectNone}
	}

	if in.Role.IsValid() {
		// 別の有効ロールに確定している場合のみ拒否する
		return Decision{State: StateDenied, Redirect: RedirectHome}
	}

	return Decision{State: StatePending, Redirect: RedirectNone}
}
