package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas9200/clima-AGS/pkg/readings"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveNormalize(readings.NormalizeReport{Skipped: map[readings.SkipReason]int{
		readings.SkipUnknownMetric: 2,
		readings.SkipBadTimestamp:  0,
	}})
	m.SeriesRequest("hourly", "ok")
	m.Ingested("mqtt", "stored")
	m.Ingested("mqtt", "stored")
	m.ObserveHTTP("/api/series", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.skippedRows.WithLabelValues("unknown_metric")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.seriesRequests.WithLabelValues("hourly", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingested.WithLabelValues("mqtt", "stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/series", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetBreakerState(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clima_store_breaker_state 2")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SeriesRequest("raw", "ok")
		m.ObserveNormalize(readings.NormalizeReport{})
		m.ObserveFetch(time.Second)
		m.Ingested("kafka", "invalid")
		m.SetBreakerState(1)
		m.ObserveHTTP("/", 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
