package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordInvestmentProcessed_IncrementsCounter は投資処理カウンタが増加することを検証する。
func TestRecordInvestmentProcessed_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordInvestmentProcessed("proj-1")
	c.RecordInvestmentProcessed("proj-1")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fundman_investments_processed_total" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric, got %d", len(mf.GetMetric()))
			}
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 2 {
				t.Errorf("investments_processed_total = %v, want 2", val)
			}
		}
	}
	if !found {
		t.Error("fundman_investments_processed_total metric not found")
	}
}

// TestRecordInvestmentRejected_IncrementsCounterWithReason は拒否カウンタが理由ラベル付きで増加することを検証する。
func TestRecordInvestmentRejected_IncrementsCounterWithReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordInvestmentRejected("INVALID_SHARES")
	c.RecordInvestmentRejected("INVALID_SHARES")
	c.RecordInvestmentRejected("ROLE_MISMATCH")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fundman_investments_rejected_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "INVALID_SHARES":
					if val != 2 {
						t.Errorf("investments_rejected_total{reason=INVALID_SHARES} = %v, want 2", val)
					}
				case "ROLE_MISMATCH":
					if val != 1 {
						t.Errorf("investments_rejected_total{reason=ROLE_MISMATCH} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("fundman_investments_rejected_total metric not found")
	}
}

// TestRecordInvestmentRetry_IncrementsCounter は冪等再試行カウンタが増加することを検証する。
func TestRecordInvestmentRetry_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordInvestmentRetry("proj-2")
	c.RecordInvestmentRetry("proj-2")
	c.RecordInvestmentRetry("proj-3")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fundman_investments_retry_total" {
			found = true
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 3 {
				t.Errorf("investments_retry_total = %v, want 3", val)
			}
		}
	}
	if !found {
		t.Error("fundman_investments_retry_total metric not found")
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fundman_http_status_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "200":
					if val != 2 {
						t.Errorf("http_status_total{status_code=200} = %v, want 2", val)
					}
				case "404":
					if val != 1 {
						t.Errorf("http_status_total{status_code=404} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("fundman_http_status_total metric not found")
	}
}

// TestRecordInvestLatency_ObservesHistogram は投資レイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordInvestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordInvestLatency(100 * time.Millisecond)
	c.RecordInvestLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fundman_invest_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("fundman_invest_latency_seconds metric not found")
	}
}

// TestRecordFundingDrift_SetsGauge は不一致プロジェクト数のゲージが最新値に更新されることを検証する。
func TestRecordFundingDrift_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFundingDrift(5)
	c.RecordFundingDrift(2)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fundman_funding_drift_projects" {
			found = true
			val := mf.GetMetric()[0].GetGauge().GetValue()
			if val != 2 {
				t.Errorf("funding_drift_projects = %v, want 2", val)
			}
		}
	}
	if !found {
		t.Error("fundman_funding_drift_projects metric not found")
	}
}

// TestRecordSessionsPurged_IncrementsCounter はセッション削除カウンタが加算されることを検証する。
func TestRecordSessionsPurged_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsPurged(10)
	c.RecordSessionsPurged(5)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fundman_sessions_purged_total" {
			found = true
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 15 {
				t.Errorf("sessions_purged_total = %v, want 15", val)
			}
		}
	}
	if !found {
		t.Error("fundman_sessions_purged_total metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordInvestmentProcessed("proj-test")
	c.RecordInvestmentRejected("INVALID_SHARES")
	c.RecordHTTPStatus(200)
	c.RecordInvestLatency(500 * time.Millisecond)
	c.RecordSessionsPurged(3)
	c.RecordFundingDrift(1)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"fundman_investments_processed_total",
		"fundman_investments_rejected_total",
		"fundman_http_status_total",
		"fundman_invest_latency_seconds",
		"fundman_sessions_purged_total",
		"fundman_funding_drift_projects",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordInvestmentProcessed("proj-a")
	c2.RecordInvestmentProcessed("proj-b")
	c2.RecordInvestmentProcessed("proj-b")

	metrics1, _ := reg1.Gather()
	metrics2, _ := reg2.Gather()

	var val1, val2 float64
	for _, mf := range metrics1 {
		if mf.GetName() == "fundman_investments_processed_total" {
			val1 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	for _, mf := range metrics2 {
		if mf.GetName() == "fundman_investments_processed_total" {
			val2 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if val1 != 1 {
		t.Errorf("reg1 investments_processed = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 investments_processed = %v, want 2", val2)
	}
}
