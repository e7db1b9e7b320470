// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
	ResultCached   = "cached"
)

// Metrics owns a private registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	snapshotSaves   *prometheus.CounterVec
	snapshotLoads   *prometheus.CounterVec
	saveTriggers    prometheus.Counter
	parseRequests   *prometheus.CounterVec
	mirrorWrites    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		snapshotSaves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meudinheiro_snapshot_saves_total",
				Help: "Snapshot saves by result.",
			},
			[]string{"result"},
		),
		snapshotLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meudinheiro_snapshot_loads_total",
				Help: "Snapshot loads by result.",
			},
			[]string{"result"},
		),
		saveTriggers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meudinheiro_save_triggers_total",
				Help: "Ledger changes that (re)scheduled a debounced save.",
			},
		),
		parseRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meudinheiro_parse_requests_total",
				Help: "Text parsing requests by result.",
			},
			[]string{"result"},
		),
		mirrorWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meudinheiro_mirror_writes_total",
				Help: "Spreadsheet mirror writes by result.",
			},
			[]string{"result"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meudinheiro_http_request_duration_seconds",
				Help:    "HTTP request duration by route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "meudinheiro_active_sessions",
				Help: "Sessions currently held in memory.",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SnapshotSaved(result string) {
	if m == nil {
		return
	}
	m.snapshotSaves.WithLabelValues(result).Inc()
}

func (m *Metrics) SnapshotLoaded(result string) {
	if m == nil {
		return
	}
	m.snapshotLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) SaveTriggered() {
	if m == nil {
		return
	}
	m.saveTriggers.Inc()
}

func (m *Metrics) ParseRequested(result string) {
	if m == nil {
		return
	}
	m.parseRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) MirrorWritten(result string) {
	if m == nil {
		return
	}
	m.mirrorWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
