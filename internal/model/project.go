// Package model はドメインモデルを定義する。
package model

import "time"

// Project は資金調達キャンペーンを表す。
// CurrentFundingは単調非減少であり、投資トランザクションのみが加算する。
// FundingGoalによる上限は設けない（超過調達を許容する。DESIGN.md参照）。
type Project struct {
	ID              string
	Title           string
	Description     string
	FullDescription string // サニタイズ済みHTML
	Category        string
	FundingGoal     Money // > 0
	CurrentFunding  Money // >= 0、単調非減少
	PricePerShare   Money // > 0
	OwnerID         string
	OwnerName       string // 非正規化されたオーナー表示名
	SiteURL         string
	FaviconData     []byte
	FaviconMime     string
	Investors       int // 投資件数カウンター
	CreatedAt       time.Time
}

// ProjectCategories はプロジェクト登録時に選択可能なカテゴリ。
var ProjectCategories = []string{
	"Technology",
	"Healthcare",
	"Finance",
	"Education",
	"Environment",
	"Entertainment",
	"Real Estate",
	"Manufacturing",
	"Other",
}

// IsValidCategory はカテゴリがサポート対象かを検証する。
func IsValidCategory(category string) bool {
	for _, c := range ProjectCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ProjectUpdate はプロジェクトの部分更新を表す。
// nilフィールドは変更せず既存値を維持する。
// CurrentFunding・Investorsは投資トランザクション専用のため含まれない。
type ProjectUpdate struct {
	Title           *string
	Description     *string
	FullDescription *string
	Category        *string
	FundingGoal     *Money
	PricePerShare   *Money
	SiteURL         *string
}
