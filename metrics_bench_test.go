package goSession

import (
	"testing"
	"time"
)

func BenchmarkMetrics(b *testing.B) {
	cases := []struct {
		name string
		cfg  MetricsConfig
	}{
		{name: "enabled", cfg: MetricsConfig{Enabled: true}},
		{name: "disabled", cfg: MetricsConfig{}},
	}
	for _, tc := range cases {
		b.Run("Inc/"+tc.name, func(b *testing.B) {
			m := NewMetrics(tc.cfg)
			b.ReportAllocs()
			for b.Loop() {
				m.Inc(MetricGatewayRequest)
			}
		})
	}
}

// gatewayPath is the counter sequence of a request that hits 401, refreshes and retries.
var gatewayPath = []MetricID{
	MetricGatewayRequest,
	MetricGatewayUnauthorized,
	MetricRefreshShared,
	MetricRefreshSuccess,
	MetricGatewayRetry,
	MetricGatewayRequest,
}

func BenchmarkMetricsGatewayPathParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for n := 0; pb.Next(); n++ {
			m.Inc(gatewayPath[n%len(gatewayPath)])
		}
	})
}

func BenchmarkMetricsObserveParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	samples := []time.Duration{8 * time.Millisecond, 120 * time.Millisecond, 3 * time.Second}
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for n := 0; pb.Next(); n++ {
			m.Observe(MetricRefreshLatency, samples[n%len(samples)])
		}
	})
}
