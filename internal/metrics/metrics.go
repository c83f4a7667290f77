// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordInvestmentProcessed(projectID string)
	RecordInvestmentRejected(reason string)
	RecordInvestmentRetry(projectID string)
	RecordHTTPStatus(statusCode int)
	RecordInvestLatency(duration time.Duration)
	RecordFundingDrift(count int)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	investProcessed prometheus.Counter
	investRejected  *prometheus.CounterVec
	investRetry     prometheus.Counter
	httpStatus      *prometheus.CounterVec
	investLatency   prometheus.Histogram
	fundingDrift    prometheus.Gauge
	sessionsPurged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		investProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundman_investments_processed_total",
			Help: "記録された投資トランザクションの合計数",
		}),
		investRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundman_investments_rejected_total",
			Help: "拒否された投資リクエストの理由別合計数",
		}, []string{"reason"}),
		investRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundman_investments_retry_total",
			Help: "冪等キーにより既存記録を返した再試行の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		investLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundman_invest_latency_seconds",
			Help:    "投資トランザクションのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		fundingDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundman_funding_drift_projects",
			Help: "台帳集計とカウンターが不一致のプロジェクト数（直近の監査時点）",
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundman_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.investProcessed,
		c.investRejected,
		c.investRetry,
		c.httpStatus,
		c.investLatency,
		c.fundingDrift,
		c.sessionsPurged,
	)

	return c
}

// RecordInvestmentProcessed は投資の記録成功を記録する。
func (c *Collector) RecordInvestmentProcessed(projectID string) {
	c.investProcessed.Inc()
}

// RecordInvestmentRejected は投資の拒否を理由別に記録する。
func (c *Collector) RecordInvestmentRejected(reason string) {
	c.investRejected.WithLabelValues(reason).Inc()
}

// RecordInvestmentRetry は冪等キーによる再試行の検出を記録する。
func (c *Collector) RecordInvestmentRetry(projectID string) {
	c.investRetry.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordInvestLatency は投資トランザクションのレイテンシを記録する。
func (c *Collector) RecordInvestLatency(duration time.Duration) {
	c.investLatency.Observe(duration.Seconds())
}

// RecordFundingDrift は整合性監査で検出された不一致プロジェクト数を記録する。
func (c *Collector) RecordFundingDrift(count int) {
	c.fundingDrift.Set(float64(count))
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
