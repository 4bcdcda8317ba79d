package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPRequest(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/api/calendar/month", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/calendar/month", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/calendar/month", http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/api/calendar/month", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/api/calendar/month", "400")))
}

func TestObserveGenerated(t *testing.T) {
	m := New()
	m.ObserveGenerated("create", 12)
	m.ObserveGenerated("extend", 0)
	m.ObserveGenerated("extend", 3)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.generated.WithLabelValues("create")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.generated.WithLabelValues("extend")))
}

func TestObserveJobRun(t *testing.T) {
	m := New()
	m.ObserveJobRun("extend_open_series", nil)
	m.ObserveJobRun("extend_open_series", errors.New("boom"))
	m.ObserveJobRun("extend_open_series", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("extend_open_series", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("extend_open_series", "failure")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveGenerated("create", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "yoga_class_instances_generated_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Second)
	m.ObserveGenerated("create", 1)
	m.ObserveJobRun("job", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
