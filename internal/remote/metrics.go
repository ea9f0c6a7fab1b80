package remote

import (
	"sync/atomic"
	"time"
)

// Metrics tracks calls made to the backend
type Metrics struct {
	calls        int64
	errors       int64
	latency      int64 // Total latency in nanoseconds
	authCalls    int64
	tableCalls   int64
	channelJoins int64
	pushedRows   int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot
func GetMetrics() Metrics {
	return Metrics{
		calls:        atomic.LoadInt64(&globalMetrics.calls),
		errors:       atomic.LoadInt64(&globalMetrics.errors),
		latency:      atomic.LoadInt64(&globalMetrics.latency),
		authCalls:    atomic.LoadInt64(&globalMetrics.authCalls),
		tableCalls:   atomic.LoadInt64(&globalMetrics.tableCalls),
		channelJoins: atomic.LoadInt64(&globalMetrics.channelJoins),
		pushedRows:   atomic.LoadInt64(&globalMetrics.pushedRows),
	}
}

// ResetMetrics resets all metrics (useful for testing)
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.calls, 0)
	atomic.StoreInt64(&globalMetrics.errors, 0)
	atomic.StoreInt64(&globalMetrics.latency, 0)
	atomic.StoreInt64(&globalMetrics.authCalls, 0)
	atomic.StoreInt64(&globalMetrics.tableCalls, 0)
	atomic.StoreInt64(&globalMetrics.channelJoins, 0)
	atomic.StoreInt64(&globalMetrics.pushedRows, 0)
}

// RecordCall records one request/response exchange with the backend.
func RecordCall(duration time.Duration, err error) {
	atomic.AddInt64(&globalMetrics.calls, 1)
	atomic.AddInt64(&globalMetrics.latency, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&globalMetrics.errors, 1)
	}
}

func RecordAuthCall()    { atomic.AddInt64(&globalMetrics.authCalls, 1) }
func RecordTableCall()   { atomic.AddInt64(&globalMetrics.tableCalls, 1) }
func RecordChannelJoin() { atomic.AddInt64(&globalMetrics.channelJoins, 1) }
func RecordPushedRow()   { atomic.AddInt64(&globalMetrics.pushedRows, 1) }

func (m Metrics) Calls() int64      { return m.calls }
func (m Metrics) Errors() int64     { return m.errors }
func (m Metrics) PushedRows() int64 { return m.pushedRows }

// AverageLatency returns the average latency in milliseconds
func (m Metrics) AverageLatency() float64 {
	if m.calls == 0 {
		return 0
	}
	avgNs := float64(m.latency) / float64(m.calls)
	return avgNs / 1e6
}

// ErrorRate returns the error rate as a percentage
func (m Metrics) ErrorRate() float64 {
	if m.calls == 0 {
		return 0
	}
	return float64(m.errors) / float64(m.calls) * 100
}

// Snapshot is the JSON view of the metrics exposed on the health endpoint.
type Snapshot struct {
	Calls        int64   `json:"calls"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate_pct"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	AuthCalls    int64   `json:"auth_calls"`
	TableCalls   int64   `json:"table_calls"`
	ChannelJoins int64   `json:"channel_joins"`
	PushedRows   int64   `json:"pushed_rows"`
}

func (m Metrics) Snapshot() Snapshot {
	return Snapshot{
		Calls:        m.calls,
		Errors:       m.errors,
		ErrorRate:    m.ErrorRate(),
		AvgLatencyMs: m.AverageLatency(),
		AuthCalls:    m.authCalls,
		TableCalls:   m.tableCalls,
		ChannelJoins: m.channelJoins,
		PushedRows:   m.pushedRows,
	}
}
