// Package model はドメインモデルを定義する。
package model

import "time"

// Investment は株式購入を記録する不変の台帳エントリを表す。
// 作成後の更新・削除パスは存在しない（追記専用）。
// PricePerShareは購入時点のスナップショットであり、
// TotalAmount == Shares × PricePerShare が厳密に成立する。
type Investment struct {
	ID             string
	IdempotencyKey string // 再試行時の二重計上を防ぐキー
	ProjectID      string
	InvestorID     string
	Shares         int   // >= 1
	PricePerShare  Money // 購入時点のスナップショット
	TotalAmount    Money // Shares × PricePerShare
	CreatedAt      time.Time
}

// InvestmentWithProject は投資記録にプロジェクト情報を読み取り時に
// 非正規化結合した構造体。ポートフォリオ集計で使用する。
type InvestmentWithProject struct {
	Investment
	ProjectTitle    string
	ProjectCategory string
}
