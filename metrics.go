package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricBootstrapRestored counts bootstraps that adopted a stored session.
	MetricBootstrapRestored MetricID = iota
	// MetricBootstrapCleared counts bootstraps that found no usable session.
	MetricBootstrapCleared
	// MetricLoginSuccess counts successful password logins.
	MetricLoginSuccess
	// MetricLoginFailure counts failed password logins.
	MetricLoginFailure
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts failed registrations.
	MetricRegisterFailure
	// MetricRegisterDuplicate counts registrations rejected with a conflict.
	MetricRegisterDuplicate
	// MetricProviderLoginSuccess counts accepted provider logins.
	MetricProviderLoginSuccess
	// MetricProviderLoginFailure counts rejected provider logins and callbacks.
	MetricProviderLoginFailure
	// MetricValidationRejected counts inputs rejected before any network call.
	MetricValidationRejected
	// MetricRefreshSuccess counts rotated token pairs.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes that ended the session.
	MetricRefreshFailure
	// MetricRefreshNetworkError counts refreshes that got no response.
	MetricRefreshNetworkError
	// MetricRefreshShared counts callers that joined an in-flight refresh.
	MetricRefreshShared
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricBackgroundExpired counts sessions ended by the background timer.
	MetricBackgroundExpired
	// MetricGatewayRequest counts requests sent through the gateway.
	MetricGatewayRequest
	// MetricGatewayUnauthorized counts 401 responses seen by the gateway.
	MetricGatewayUnauthorized
	// MetricGatewayRetry counts retries after a successful refresh.
	MetricGatewayRetry
	// MetricGatewayForcedLogout counts sessions torn down by the gateway.
	MetricGatewayForcedLogout
	// MetricStorageFailure counts credential store errors, including absorbed ones.
	MetricStorageFailure
	// MetricRefreshLatency is the histogram of backend refresh round trips.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil *Metrics is a valid disabled instance.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricRefreshLatency has buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRefreshLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics return empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRefreshLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRefreshLatency].buckets[i])
		}
		s.Histograms[MetricRefreshLatency] = buckets
	}

	return s
}

// latencyBounds are the inclusive upper bounds of every bucket but the last (+Inf).
var latencyBounds = [histBucketCount - 1]time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	d = d.Truncate(time.Millisecond)
	for i, upper := range latencyBounds {
		if d <= upper {
			return i
		}
	}
	return histBucketCount - 1
}
