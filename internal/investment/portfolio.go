package investment

import (
	"github.com/hitoshi/fundman/internal/model"
)

// growthMultiplierPercent はポートフォリオ評価額のシミュレーション係数（%）。
// 実際の市場評価は行わず、投資元本の15%増を仮の評価額として提示する。
const growthMultiplierPercent = 115

// Portfolio は投資家のポートフォリオサマリー。
// PortfolioValueは投資元本に固定係数を乗じたシミュレーション値であり、
// 実際の市場評価ではない。
type Portfolio struct {
	TotalInvested        model.Money
	TotalShares          int
	UniqueProjects       int
	AllocationByCategory map[string]model.Money
	PortfolioValue       model.Money // TotalInvested × 1.15（シミュレーション値）
	GrowthPercent        float64
	Investments          []model.InvestmentWithProject
}

// Aggregate は投資記録からポートフォリオサマリーを集計する。
// 純粋関数であり、I/Oを行わない。
// 金額はセント単位の整数演算のみで集計するため丸め誤差は発生しない。
func Aggregate(records []model.InvestmentWithProject) Portfolio {
	p := Portfolio{
		AllocationByCategory: make(map[string]model.Money),
		Investments:          records,
	}

	seen := make(map[string]struct{})

	for _, r := range records {
		p.TotalInvested += r.TotalAmount
		p.TotalShares += r.Shares
		p.AllocationByCategory[r.ProjectCategory] += r.TotalAmount

		if _, ok := seen[r.ProjectID]; !ok {
			seen[r.ProjectID] = struct{}{}
			p.UniqueProjects++
		}
	}

	// シミュレーション評価額: 元本 × 115 / 100（セント単位の整数演算）
	p.PortfolioValue = p.TotalInvested * growthMultiplierPercent / 100

	if p.TotalInvested > 0 {
		gain := p.PortfolioValue - p.TotalInvested
		p.GrowthPercent = float64(gain) / float64(p.TotalInvested) * 100
	}

	return p
}
