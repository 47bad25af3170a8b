package tokenlife

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginIssued counts login responses carrying an auth/refresh pair.
	MetricLoginIssued MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRegistrationTokenIssued counts login responses carrying a registration token.
	MetricRegistrationTokenIssued
	// MetricRegistrationCompleted counts successful registration completions.
	MetricRegistrationCompleted
	// MetricRegistrationFailure counts rejected registration completions.
	MetricRegistrationFailure
	// MetricUpgradeSuccess counts registration tokens upgraded through /me.
	MetricUpgradeSuccess
	// MetricUpgradeFailure counts rejected upgrades.
	MetricUpgradeFailure
	// MetricRefreshSuccess counts completed pair rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes rejected for any reason.
	MetricRefreshFailure
	// MetricRefreshNotExpired counts refreshes attempted before expiry.
	MetricRefreshNotExpired
	// MetricRefreshMismatch counts refreshes failing the bearer or subject match.
	MetricRefreshMismatch
	// MetricRefreshUnavailable counts refreshes with an unknown or spent refresh token.
	MetricRefreshUnavailable
	// MetricLogout counts logouts that revoked a live token.
	MetricLogout
	// MetricResolveSuccess counts bearer tokens resolved to a principal.
	MetricResolveSuccess
	// MetricResolveFailure counts bearer tokens that failed to resolve.
	MetricResolveFailure
	// MetricResolveLatency is the ResolvePrincipal latency histogram.
	MetricResolveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets  [histBucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. The zero value is disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets
// are per-bucket (not cumulative) counts with upper bounds 5, 10, 25, 50,
// 100, 250, 500 ms and +Inf.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a metrics set configured by cfg.
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

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into histogram id. Only MetricResolveLatency is a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricResolveLatency {
		return
	}
	if d < 0 {
		d = 0
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
	atomic.AddUint64(&m.histograms[id].sumNanos, uint64(d))
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return emptySnapshot()
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]time.Duration, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricResolveLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricResolveLatency].buckets[i])
		}
		s.Histograms[MetricResolveLatency] = buckets
		s.HistogramSums[MetricResolveLatency] = time.Duration(atomic.LoadUint64(&m.histograms[MetricResolveLatency].sumNanos))
	}

	return s
}

func emptySnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
