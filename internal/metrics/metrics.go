// Package metrics exposes Prometheus collectors for the print client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by ObserveRequest.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeDecode    = "decode_error"
	OutcomeRejected  = "rejected"
)

// Stream message kinds recorded by StreamMessage.
const (
	KindPrintJob = "print_job"
	KindAck      = "ack"
	KindError    = "error"
	KindIgnored  = "ignored"
)

// Metrics groups the client collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	streamMessages     *prometheus.CounterVec
	statusLines        prometheus.Counter
}

// New registers the collectors on a fresh registry so several clients can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		apiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "impressa_api_requests_total",
				Help: "Backend API calls, labeled by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		apiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "impressa_api_request_duration_seconds",
				Help:    "Backend API call latency, labeled by endpoint.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		),
		streamMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "impressa_stream_messages_total",
				Help: "Frames received on the notification stream, labeled by kind.",
			},
			[]string{"kind"},
		),
		statusLines: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "impressa_status_lines_total",
				Help: "Lines appended to the status log.",
			},
		),
	}
}

// ObserveRequest records one backend call.
func (m *Metrics) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.apiRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// StreamMessage counts one inbound notification frame.
func (m *Metrics) StreamMessage(kind string) {
	if m == nil {
		return
	}
	m.streamMessages.WithLabelValues(kind).Inc()
}

// StatusLine counts one appended status line.
func (m *Metrics) StatusLine() {
	if m == nil {
		return
	}
	m.statusLines.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
