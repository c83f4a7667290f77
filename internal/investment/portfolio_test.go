package investment

import (
	"testing"

	"github.com/hitoshi/fundman/internal/model"
)

func record(projectID, category string, totalAmount model.Money, shares int) model.InvestmentWithProject {
	return model.InvestmentWithProject{
		Investment: model.Investment{
			ProjectID:   projectID,
			Shares:      shares,
			TotalAmount: totalAmount,
		},
		ProjectCategory: category,
	}
}

func TestAggregate(t *testing.T) {
	records := []model.InvestmentWithProject{
		record("a", "tech", 100, 1),
		record("b", "health", 200, 2),
	}

	p := Aggregate(records)

	if p.TotalInvested != 300 {
		t.Errorf("TotalInvested = %d, want 300", p.TotalInvested)
	}
	if p.TotalShares != 3 {
		t.Errorf("TotalShares = %d, want 3", p.TotalShares)
	}
	if p.UniqueProjects != 2 {
		t.Errorf("UniqueProjects = %d, want 2", p.UniqueProjects)
	}
	if p.AllocationByCategory["tech"] != 100 {
		t.Errorf("tech allocation = %d, want 100", p.AllocationByCategory["tech"])
	}
	if p.AllocationByCategory["health"] != 200 {
		t.Errorf("health allocation = %d, want 200", p.AllocationByCategory["health"])
	}
	// 300 × 115 / 100 = 345（セント単位の整数演算）
	if p.PortfolioValue != 345 {
		t.Errorf("PortfolioValue = %d, want 345", p.PortfolioValue)
	}
	if p.GrowthPercent != 15 {
		t.Errorf("GrowthPercent = %v, want 15", p.GrowthPercent)
	}
}

func TestAggregate_Empty(t *testing.T) {
	p := Aggregate(nil)

	if p.TotalInvested != 0 || p.TotalShares != 0 || p.UniqueProjects != 0 {
		t.Errorf("empty aggregate = %+v, want zeros", p)
	}
	if p.PortfolioValue != 0 {
		t.Errorf("PortfolioValue = %d, want 0", p.PortfolioValue)
	}
	if p.GrowthPercent != 0 {
		t.Errorf("GrowthPercent = %v, want 0", p.GrowthPercent)
	}
	if p.AllocationByCategory == nil {
		t.Error("AllocationByCategory is nil, want empty map")
	}
}

func TestAggregate_SameProjectMultipleInvestments(t *testing.T) {
	// 同一プロジェクトへの複数投資はUniqueProjectsに1回だけ数える
	records := []model.InvestmentWithProject{
		record("a", "tech", 1000, 10),
		record("a", "tech", 500, 5),
		record("b", "art", 250, 1),
	}

	p := Aggregate(records)

	if p.UniqueProjects != 2 {
		t.Errorf("UniqueProjects = %d, want 2", p.UniqueProjects)
	}
	if p.TotalInvested != 1750 {
		t.Errorf("TotalInvested = %d, want 1750", p.TotalInvested)
	}
	if p.AllocationByCategory["tech"] != 1500 {
		t.Errorf("tech allocation = %d, want 1500", p.AllocationByCategory["tech"])
	}
}

func TestAggregate_DeletedProjectRecordsRemain(t *testing.T) {
	// プロジェクト削除後も台帳の記録は残り、合計に含まれ続ける
	// （削除済みの記録はproject_idが空でフォールバック表記になる）
	records := []model.InvestmentWithProject{
		record("a", "tech", 1000, 10),
		{
			Investment:      model.Investment{ProjectID: "", Shares: 2, TotalAmount: 500},
			ProjectTitle:    "Unknown Project",
			ProjectCategory: "Unknown",
		},
	}

	p := Aggregate(records)

	if p.TotalInvested != 1500 {
		t.Errorf("TotalInvested = %d, want 1500", p.TotalInvested)
	}
	if p.TotalShares != 12 {
		t.Errorf("TotalShares = %d, want 12", p.TotalShares)
	}
	if p.AllocationByCategory["Unknown"] != 500 {
		t.Errorf("Unknown allocation = %d, want 500", p.AllocationByCategory["Unknown"])
	}
	if len(p.Investments) != 2 {
		t.Errorf("Investments = %d entries, want 2", len(p.Investments))
	}
}

func TestAggregate_ExactIntegerArithmetic(t *testing.T) {
	// 115/100の乗算で端数が切り捨てられることを確認する
	// （浮動小数点を経由しないため丸め誤差は発生しない）
	records := []model.InvestmentWithProject{
		record("a", "tech", 333, 1),
	}

	p := Aggregate(records)

	// 333 × 115 / 100 = 38295 / 100 = 382（整数除算）
	if p.PortfolioValue != 382 {
		t.Errorf("PortfolioValue = %d, want 382", p.PortfolioValue)
	}
}
