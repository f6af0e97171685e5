package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gatherFamily は指定名のメトリクスファミリーを取得する。見つからない場合は失敗する。
func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPRequest_CountsByRouteAndStatus はルート・ステータス別にカウントされることを検証する。
func TestRecordHTTPRequest_CountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/users/{id}", 200, 10*time.Millisecond)
	c.RecordHTTPRequest("GET", "/users/{id}", 200, 20*time.Millisecond)
	c.RecordHTTPRequest("GET", "/users/{id}", 403, 5*time.Millisecond)

	mf := gatherFamily(t, reg, "accounts_http_requests_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		if route := labelValue(m, "route"); route != "/users/{id}" {
			t.Errorf("route = %q", route)
		}
		val := m.GetCounter().GetValue()
		switch labelValue(m, "status") {
		case "200":
			if val != 2 {
				t.Errorf("status=200 count = %v, want 2", val)
			}
		case "403":
			if val != 1 {
				t.Errorf("status=403 count = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected status label: %s", labelValue(m, "status"))
		}
	}

	h := gatherFamily(t, reg, "accounts_http_request_duration_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 3 {
		t.Errorf("sample_count = %d, want 3", h.GetSampleCount())
	}
}

// TestRecordCleanupRun は実行結果と削除件数が記録されることを検証する。
func TestRecordCleanupRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCleanupRun(CleanupResultSuccess, 3)
	c.RecordCleanupRun(CleanupResultSuccess, 0)
	c.RecordCleanupRun(CleanupResultSkipped, 0)
	c.RecordCleanupRun(CleanupResultFailure, 0)

	purged := gatherFamily(t, reg, "accounts_cleanup_users_purged_total").GetMetric()[0].GetCounter().GetValue()
	if purged != 3 {
		t.Errorf("users_purged_total = %v, want 3", purged)
	}

	runs := map[string]float64{}
	for _, m := range gatherFamily(t, reg, "accounts_cleanup_runs_total").GetMetric() {
		runs[labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	want := map[string]float64{CleanupResultSuccess: 2, CleanupResultSkipped: 1, CleanupResultFailure: 1}
	for result, n := range want {
		if runs[result] != n {
			t.Errorf("runs{result=%s} = %v, want %v", result, runs[result], n)
		}
	}

	last := gatherFamily(t, reg, "accounts_cleanup_last_success_timestamp_seconds").GetMetric()[0].GetGauge().GetValue()
	if last <= 0 {
		t.Errorf("last success timestamp = %v, want > 0", last)
	}
}

// TestCollector_ImplementsInterface はCollectorがMetricsCollectorを満たすことを検証する。
func TestCollector_ImplementsInterface(t *testing.T) {
	var _ MetricsCollector = NewCollector(prometheus.NewRegistry())
}
