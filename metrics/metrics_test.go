package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditCounters(t *testing.T) {
	m := New()
	m.IncAuditWritten("Note", "CREATE")
	m.IncAuditWritten("Note", "CREATE")
	m.IncAuditSkipped()
	m.IncAuditFailed("append")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditWrittenTotal.WithLabelValues("Note", "CREATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditSkippedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditFailedTotal.WithLabelValues("append")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncAuditWritten("Note", "CREATE")
		m.IncAuditSkipped()
		m.IncAuditFailed("publish")
		m.ObserveHTTP("GET", "/notes", "200", 0.1)
		m.IncUserCache(true)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/notes", "200", 0.01)
	m.IncUserCache(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `backoffice_http_requests_total{method="GET",route="/notes",status="200"} 1`)
	assert.Contains(t, body, "backoffice_user_cache_misses_total 1")
}

func TestGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	m := New()
	SetGlobal(m)
	assert.Same(t, m, Global())
}
