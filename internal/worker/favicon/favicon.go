// Package favicon はプロジェクトfaviconの定期更新ジョブを提供する。
// サイトURLが設定されたプロジェクトのfaviconを定期的に再取得する。
package favicon

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// FaviconRefresher はfavicon再取得処理のインターフェース。
// project.Serviceを抽象化してテスタビリティを向上させる。
type FaviconRefresher interface {
	RefreshFavicon(ctx context.Context) (int, error)
}

// RefreshJob はプロジェクトfaviconの定期更新ジョブ。
type RefreshJob struct {
	refresher FaviconRefresher
	logger    *slog.Logger
}

// NewRefreshJob は新しいRefreshJobを生成する。
func NewRefreshJob(refresher FaviconRefresher, logger *slog.Logger) *RefreshJob {
	return &RefreshJob{
		refresher: refresher,
		logger:    logger,
	}
}

// Run はfavicon更新を1回実行する。
// 個別プロジェクトの取得失敗はジョブの成否に影響しない。
func (j *RefreshJob) Run(ctx context.Context) error {
	start := time.Now()

	refreshed, err := j.refresher.RefreshFavicon(ctx)
	if err != nil {
		j.logger.Error("favicon更新ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("favicon更新の実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("favicon更新ジョブが完了しました",
		slog.Int("refreshed_count", refreshed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでfavicon更新ジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *RefreshJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("favicon更新ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("favicon更新ジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("favicon更新の実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
