package tokenguard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricSessionIssued MetricID = iota
	MetricSessionIssueFailed
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricLogout
	MetricLogoutAll
	MetricAuthorized
	MetricRejectedNoToken
	MetricRejectedInvalidToken
	MetricRejectedInvalidClaims
	MetricRejectedSessionRevoked
	MetricRegistryUnavailable
	MetricDeviceMismatch
	MetricActionIssued
	MetricActionVerified
	MetricActionRejected
	MetricActionReplay
	MetricLoginAttempt
	MetricLoginBlocked
	MetricLoginReset
	MetricLimiterUnavailable
	// MetricAuthorizeLatency only has a histogram.
	MetricAuthorizeLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricSessionIssued:          "session_issued",
	MetricSessionIssueFailed:     "session_issue_failed",
	MetricRefreshSuccess:         "refresh_success",
	MetricRefreshFailure:         "refresh_failure",
	MetricRefreshReuseDetected:   "refresh_reuse_detected",
	MetricLogout:                 "logout",
	MetricLogoutAll:              "logout_all",
	MetricAuthorized:             "authorized",
	MetricRejectedNoToken:        "rejected_no_token",
	MetricRejectedInvalidToken:   "rejected_invalid_token",
	MetricRejectedInvalidClaims:  "rejected_invalid_claims",
	MetricRejectedSessionRevoked: "rejected_session_revoked",
	MetricRegistryUnavailable:    "registry_unavailable",
	MetricDeviceMismatch:         "device_mismatch",
	MetricActionIssued:           "action_issued",
	MetricActionVerified:         "action_verified",
	MetricActionRejected:         "action_rejected",
	MetricActionReplay:           "action_replay",
	MetricLoginAttempt:           "login_attempt",
	MetricLoginBlocked:           "login_blocked",
	MetricLoginReset:             "login_reset",
	MetricLimiterUnavailable:     "limiter_unavailable",
	MetricAuthorizeLatency:       "authorize_latency",
}

func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

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

// Metrics is a fixed set of lock-free counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates counters according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.LatencyHistograms,
	}
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records an Authorize latency sample. Other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthorizeLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
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
		if id == MetricAuthorizeLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthorizeLatency].buckets[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}
	return s
}

// bucket upper bounds: 1ms 2ms 5ms 10ms 25ms 50ms 100ms +Inf
func bucketIndex(d time.Duration) int {
	switch {
	case d <= time.Millisecond:
		return 0
	case d <= 2*time.Millisecond:
		return 1
	case d <= 5*time.Millisecond:
		return 2
	case d <= 10*time.Millisecond:
		return 3
	case d <= 25*time.Millisecond:
		return 4
	case d <= 50*time.Millisecond:
		return 5
	case d <= 100*time.Millisecond:
		return 6
	default:
		return 7
	}
}
