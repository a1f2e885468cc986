package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one gateway counter.
type MetricID uint16

const (
	MetricChallengeIssued MetricID = iota
	MetricChallengeRateLimited
	MetricTokenIssued
	MetricTokenRejected
	MetricBearerAPIKeySuccess
	MetricBearerAPIKeyFailure
	MetricClientCredentialsSuccess
	MetricClientCredentialsFailure
	MetricBasicSuccess
	MetricBasicFailure
	MetricSessionPassThrough
	MetricNotAuthenticated
	MetricMalformedCredentials
	// MetricKeySetFetch counts remote key set fetches, including duplicates
	// from concurrent misses on the same kid.
	MetricKeySetFetch
	MetricKeyResolutionFailure
	// MetricAuthenticateLatency is the only histogram.
	MetricAuthenticateLatency
	metricIDCount
)

// MetricIDCount is the number of defined metric IDs.
const MetricIDCount = int(metricIDCount)

// latencyBounds are the inclusive upper bounds of every bucket but the last,
// which catches everything slower.
var latencyBounds = [...]time.Duration{
	100 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	25 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// counterSlot keeps each counter on its own cache line.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled bool
	latency bool
	slots   [metricIDCount]counterSlot
	buckets [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.slots[id].n.Add(1)
}

// Observe records d in the histogram for id. Only MetricAuthenticateLatency
// has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricAuthenticateLatency {
		return
	}
	m.buckets[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.slots[id].n.Load()
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}
	for id := range MetricAuthenticateLatency {
		snap.Counters[id] = m.slots[id].n.Load()
	}
	if m.latency {
		counts := make([]uint64, latencyBucketCount)
		for i := range counts {
			counts[i] = m.buckets[i].Load()
		}
		snap.Histograms[MetricAuthenticateLatency] = counts
	}
	return snap
}

func latencyBucket(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
