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

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("printers", OutcomeOK, 20*time.Millisecond)
	m.ObserveRequest("printers", OutcomeOK, 30*time.Millisecond)
	m.ObserveRequest("login", OutcomeRejected, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequestsTotal.WithLabelValues("printers", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequestsTotal.WithLabelValues("login", OutcomeRejected)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.apiRequestDuration))
}

func TestStreamAndStatusCounters(t *testing.T) {
	m := New()

	m.StreamMessage(KindPrintJob)
	m.StreamMessage(KindIgnored)
	m.StreamMessage(KindIgnored)
	m.StatusLine()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.streamMessages.WithLabelValues(KindPrintJob)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.streamMessages.WithLabelValues(KindIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusLines))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("login", OutcomeOK, time.Second)
		m.StreamMessage(KindAck)
		m.StatusLine()
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.StatusLine()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "impressa_status_lines_total 1")
}
