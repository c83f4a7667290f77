// Package reconcile は投資台帳とプロジェクトカウンターの整合性監査ジョブを提供する。
// 台帳のSUM(total_amount)・COUNT(*)とprojects.current_funding・investorsを
// 照合し、不一致を検出した場合はログとメトリクスで報告する。
// 主経路では両書き込みが同一SQLトランザクションのため、不一致の検出は
// トランザクション外の操作（手動修正等）を示す。自動修復は行わない。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/fundman/internal/repository"
)

// DriftMetrics は整合性監査のメトリクス記録のインターフェース。
type DriftMetrics interface {
	RecordFundingDrift(count int)
}

// ReconcileJob は投資台帳とプロジェクトカウンターの整合性監査ジョブ。
type ReconcileJob struct {
	investmentRepo repository.InvestmentRepository
	logger         *slog.Logger
	metrics        DriftMetrics
}

// NewReconcileJob は新しいReconcileJobを生成する。metricsはnilを許容する。
func NewReconcileJob(investmentRepo repository.InvestmentRepository, logger *slog.Logger, metrics DriftMetrics) *ReconcileJob {
	return &ReconcileJob{
		investmentRepo: investmentRepo,
		logger:         logger,
		metrics:        metrics,
	}
}

// Run は整合性監査を1回実行し、検出された不一致プロジェクト数を返す。
// 不一致はログとメトリクスで報告するのみで、データの修復は行わない。
func (j *ReconcileJob) Run(ctx context.Context) (int, error) {
	start := time.Now()

	drifts, err := j.investmentRepo.ListFundingDrift(ctx)
	if err != nil {
		j.logger.Error("整合性監査の実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("整合性監査の実行に失敗: %w", err)
	}

	for _, d := range drifts {
		j.logger.Warn("資金カウンターと台帳集計の不一致を検出しました",
			slog.String("project_id", d.ProjectID),
			slog.Int64("current_funding", int64(d.CurrentFunding)),
			slog.Int64("ledger_total", int64(d.LedgerTotal)),
			slog.Int("investors_counter", d.InvestorsCounter),
			slog.Int("ledger_count", d.LedgerCount),
		)
	}

	if j.metrics != nil {
		j.metrics.RecordFundingDrift(len(drifts))
	}

	duration := time.Since(start)
	j.logger.Info("整合性監査が完了しました",
		slog.Int("drift_count", len(drifts)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return len(drifts), nil
}

// Start は指定間隔のティッカーで監査ジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *ReconcileJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("整合性監査ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("整合性監査の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("整合性監査ジョブを停止しました")
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.logger.Error("整合性監査の実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
