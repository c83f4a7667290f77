// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, project, investment, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken           = "EMAIL_TAKEN"
	ErrCodeInvalidRole          = "INVALID_ROLE"
	ErrCodeRoleUnresolved       = "ROLE_UNRESOLVED"
	ErrCodeRoleMismatch         = "ROLE_MISMATCH"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodePartialWrite         = "PARTIAL_WRITE"
	ErrCodeProjectNotFound      = "PROJECT_NOT_FOUND"
	ErrCodeNotProjectOwner      = "NOT_PROJECT_OWNER"
	ErrCodeInvalidShares        = "INVALID_SHARES"
	ErrCodeInvalidFundingGoal   = "INVALID_FUNDING_GOAL"
	ErrCodeInvalidSharePrice    = "INVALID_SHARE_PRICE"
	ErrCodeInvalidCategory      = "INVALID_CATEGORY"
	ErrCodeInvalidSiteURL       = "INVALID_SITE_URL"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeWeakPassword         = "WEAK_PASSWORD"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレスの存在有無を秘匿するため、原因は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは8文字以上で指定してください。",
		Category: "auth",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewInvalidRoleError は無効なロール指定エラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには investor または owner を指定してください。",
	}
}

// NewRoleUnresolvedError はロール未解決状態を表すエラーを生成する。
// ハードエラーではなく一時的な正常状態であり、認証エラーとは区別される。
func NewRoleUnresolvedError() *APIError {
	return &APIError{
		Code:     ErrCodeRoleUnresolved,
		Message:  "ユーザーのロールがまだ確定していません。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRoleMismatchError はロール不一致による拒否エラーを生成する。
func NewRoleMismatchError(required Role) *APIError {
	return &APIError{
		Code:     ErrCodeRoleMismatch,
		Message:  fmt.Sprintf("この操作には %s ロールが必要です。", required),
		Category: "auth",
		Action:   "該当ロールのアカウントでログインしてください。",
	}
}

// NewStoreUnavailableError はストア未接続エラーを生成する。
// 有効なストア接続を持たないコンテキストで操作が呼び出された場合に返される。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアに接続できません。",
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPartialWriteError は投資トランザクションの部分書き込み不整合エラーを生成する。
// 台帳追記後のカウンター加算失敗を表す。主経路では両書き込みが同一SQL
// トランザクションで行われるため通常は到達しない（DESIGN.md参照）。
func NewPartialWriteError(investmentID string) *APIError {
	return &APIError{
		Code:     ErrCodePartialWrite,
		Message:  fmt.Sprintf("投資の記録が完了しませんでした: %s", investmentID),
		Category: "investment",
		Action:   "同じ操作を再試行してください。二重計上は発生しません。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
		Category: "project",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewNotProjectOwnerError はオーナー以外による変更操作の拒否エラーを生成する。
func NewNotProjectOwnerError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotProjectOwner,
		Message:  fmt.Sprintf("このプロジェクトを変更する権限がありません: %s", projectID),
		Category: "auth",
		Action:   "自分が作成したプロジェクトのみ変更できます。",
	}
}

// NewInvalidSharesError は無効な株数エラーを生成する。
func NewInvalidSharesError(shares int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidShares,
		Message:  fmt.Sprintf("無効な株数です: %d", shares),
		Category: "validation",
		Action:   "株数には1以上の整数を指定してください。",
	}
}

// NewInvalidFundingGoalError は無効な目標金額エラーを生成する。
func NewInvalidFundingGoalError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFundingGoal,
		Message:  "目標金額には0より大きい値を指定してください。",
		Category: "validation",
		Action:   "目標金額を確認してください。",
	}
}

// NewInvalidSharePriceError は無効な株価エラーを生成する。
func NewInvalidSharePriceError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSharePrice,
		Message:  "1株あたりの価格には0より大きい値を指定してください。",
		Category: "validation",
		Action:   "株価を確認してください。",
	}
}

// NewInvalidCategoryError は無効なカテゴリエラーを生成する。
func NewInvalidCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("無効なカテゴリです: %s", category),
		Category: "validation",
		Action:   "サポートされているカテゴリから選択してください。",
	}
}

// NewInvalidSiteURLError は無効なサイトURLエラーを生成する。
func NewInvalidSiteURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSiteURL,
		Message:  fmt.Sprintf("無効なサイトURLです: %s", reason),
		Category: "validation",
		Action:   "公開されているWebサイトのURL（http:// または https://）を入力してください。",
	}
}

// NewMissingFieldError は必須フィールド未指定エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須フィールドが指定されていません: %s", field),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "ユーザープロフィールが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
