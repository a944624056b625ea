// Package metrics holds the Prometheus collectors for the series API and
// telemetry ingestion. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonas9200/clima-AGS/pkg/readings"
)

const namespace = "clima"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	seriesRequests *prometheus.CounterVec
	skippedRows    *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	ingested       *prometheus.CounterVec
	breakerState   prometheus.Gauge
}

// New builds the collectors on a private registry, so tests can create as
// many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		seriesRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_requests_total",
			Help:      "Series retrievals by kind (raw, hourly) and outcome.",
		}, []string{"kind", "outcome"}),
		skippedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_skipped_rows_total",
			Help:      "Raw rows dropped during normalization, by reason.",
		}, []string{"reason"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_fetch_duration_seconds",
			Help:      "Duration of store fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_ingested_total",
			Help:      "Telemetry messages by source (mqtt, kafka) and outcome.",
		}, []string{"source", "outcome"}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_breaker_state",
			Help:      "Store circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.seriesRequests,
		m.skippedRows,
		m.fetchDuration,
		m.ingested,
		m.breakerState,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) SeriesRequest(kind, outcome string) {
	if m == nil {
		return
	}
	m.seriesRequests.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveNormalize(report readings.NormalizeReport) {
	if m == nil {
		return
	}
	for reason, n := range report.Skipped {
		if n > 0 {
			m.skippedRows.WithLabelValues(string(reason)).Add(float64(n))
		}
	}
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) Ingested(source, outcome string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}
