package infra

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks replay progress with atomic counters so the feed server can
// read them while the driver goroutine writes.
type Metrics struct {
	// Counters
	quotesApplied      atomic.Uint64
	tradesApplied      atomic.Uint64
	tradesUnplaced     atomic.Uint64
	reanchors          atomic.Uint64
	snapshotsPublished atomic.Uint64
	sinkErrors         atomic.Uint64

	// Step latency tracking
	stepSumNs atomic.Int64
	stepCount atomic.Uint64

	// Gauges
	lagNs atomic.Int64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordQuote records an applied quote.
func (m *Metrics) RecordQuote(reanchored bool) {
	m.quotesApplied.Add(1)
	if reanchored {
		m.reanchors.Add(1)
	}
}

// RecordTrade records an applied trade and whether it landed on a row.
func (m *Metrics) RecordTrade(placed bool) {
	m.tradesApplied.Add(1)
	if !placed {
		m.tradesUnplaced.Add(1)
	}
}

// RecordStep records how long one engine step took.
func (m *Metrics) RecordStep(latency time.Duration) {
	m.stepSumNs.Add(latency.Nanoseconds())
	m.stepCount.Add(1)
}

// RecordPublish records a snapshot handed to the sinks.
func (m *Metrics) RecordPublish() {
	m.snapshotsPublished.Add(1)
}

// RecordSinkError records a sink failure.
func (m *Metrics) RecordSinkError() {
	m.sinkErrors.Add(1)
}

// SetLag sets how far the driver is behind its schedule.
func (m *Metrics) SetLag(lag time.Duration) {
	m.lagNs.Store(lag.Nanoseconds())
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	QuotesApplied      uint64
	TradesApplied      uint64
	TradesUnplaced     uint64
	Reanchors          uint64
	SnapshotsPublished uint64
	SinkErrors         uint64
	AvgStepNs          int64
	Lag                time.Duration
	Timestamp          time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avg int64
	count := m.stepCount.Load()
	if count > 0 {
		avg = m.stepSumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		QuotesApplied:      m.quotesApplied.Load(),
		TradesApplied:      m.tradesApplied.Load(),
		TradesUnplaced:     m.tradesUnplaced.Load(),
		Reanchors:          m.reanchors.Load(),
		SnapshotsPublished: m.snapshotsPublished.Load(),
		SinkErrors:         m.sinkErrors.Load(),
		AvgStepNs:          avg,
		Lag:                time.Duration(m.lagNs.Load()),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.quotesApplied.Store(0)
	m.tradesApplied.Store(0)
	m.tradesUnplaced.Store(0)
	m.reanchors.Store(0)
	m.snapshotsPublished.Store(0)
	m.sinkErrors.Store(0)
	m.stepSumNs.Store(0)
	m.stepCount.Store(0)
	m.lagNs.Store(0)
}

// Registry exposes the counters to Prometheus. The collectors read the
// atomics on scrape, so nothing on the replay path touches Prometheus.
func (m *Metrics) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: "ladder", Name: name, Help: help},
			func() float64 { return float64(v.Load()) },
		)
	}
	reg.MustRegister(
		counter("quotes_applied_total", "Quotes applied to the ladder", &m.quotesApplied),
		counter("trades_applied_total", "Trades applied to the ladder", &m.tradesApplied),
		counter("trades_unplaced_total", "Trades that matched no ladder row", &m.tradesUnplaced),
		counter("reanchors_total", "Price window re-anchors", &m.reanchors),
		counter("snapshots_published_total", "Snapshots handed to sinks", &m.snapshotsPublished),
		counter("sink_errors_total", "Snapshot sink failures", &m.sinkErrors),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: "ladder", Name: "replay_lag_seconds", Help: "How far playback runs behind schedule"},
			func() float64 { return time.Duration(m.lagNs.Load()).Seconds() },
		),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler serves the registry in the Prometheus text format.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
