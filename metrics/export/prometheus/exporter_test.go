package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"

	goSession "github.com/MrEthical07/goSession"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func sampleSource() fakeSource {
	return fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricLoginSuccess:   7,
				goSession.MetricRefreshShared:  3,
				goSession.MetricGatewayRequest: 12,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricRefreshLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(sampleSource())

	out := exp.Render()
	for _, want := range []string{
		"gosession_login_success_total 7",
		"gosession_refresh_shared_total 3",
		"gosession_logout_total 0",
		`gosession_refresh_latency_seconds_bucket{le="0.025"} 1`,
		`gosession_refresh_latency_seconds_bucket{le="+Inf"} 36`,
		"gosession_refresh_latency_seconds_count 36",
		"gosession_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if out != exp.Render() {
		t.Fatal("render output should be deterministic")
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(sampleSource())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCollectorRegistersAndGathers(t *testing.T) {
	reg := prom.NewPedanticRegistry()
	if err := reg.Register(NewCollectorFromSource(sampleSource())); err != nil {
		t.Fatalf("Register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	byName := make(map[string]float64)
	var histCount uint64
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			byName[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetHistogram() != nil:
			histCount = m.GetHistogram().GetSampleCount()
			if n := len(m.GetHistogram().GetBucket()); n != 7 {
				t.Fatalf("expected 7 finite buckets, got %d", n)
			}
		}
	}
	if byName["gosession_login_success_total"] != 7 {
		t.Fatalf("unexpected login counter %v", byName["gosession_login_success_total"])
	}
	if byName["gosession_audit_dropped_total"] != 2 {
		t.Fatalf("unexpected dropped counter %v", byName["gosession_audit_dropped_total"])
	}
	if histCount != 36 {
		t.Fatalf("expected 36 samples, got %d", histCount)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(sampleSource())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
