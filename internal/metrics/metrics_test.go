package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Submission(true)
	m.Submission(true)
	m.Submission(false)
	m.Photos(3, 1)
	m.Photos(2, 0)
	m.Export("csv")
	m.Location(OutcomeOK)
	m.Location("timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeError)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.photos.WithLabelValues("captured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.photos.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.locationRequests.WithLabelValues("timeout")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Submission(true)
		m.Photos(1, 1)
		m.Export("pdf")
		m.Location(OutcomeOK)
		m.ObserveHTTP("GET /healthz", http.StatusOK, time.Millisecond)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Export("xlsx")
	m.ObserveHTTP("GET /installations", http.StatusOK, 20*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `prodair_exports_total{format="xlsx"} 1`)
	assert.Contains(t, string(body), "prodair_http_request_duration_seconds_bucket")
}
