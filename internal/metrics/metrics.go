// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contest"

// Metrics groups the application collectors. A nil *Metrics is valid and
// records nothing, so services can run without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	submissions          *prometheus.CounterVec
	assignmentFailures   prometheus.Counter
	evaluationsRecorded  prometheus.Counter
	submissionsEvaluated prometheus.Counter
	overdueReviews       prometheus.Gauge
	chatConnections      prometheus.Gauge
	requestDuration      *prometheus.HistogramVec
}

// New creates the collectors on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions written, by action (created or updated).",
		}, []string{"action"}),
		assignmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panel_assignment_failures_total",
			Help:      "Submissions rejected because fewer than three evaluators were approved.",
		}),
		evaluationsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_recorded_total",
			Help:      "Evaluations stored.",
		}),
		submissionsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_evaluated_total",
			Help:      "Submissions that reached quorum.",
		}),
		overdueReviews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_reviews",
			Help:      "Submissions still under review past their deadline.",
		}),
		chatConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_connections",
			Help:      "Open chat websocket connections on this instance.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submissions,
		m.assignmentFailures,
		m.evaluationsRecorded,
		m.submissionsEvaluated,
		m.overdueReviews,
		m.chatConnections,
		m.requestDuration,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SubmissionWritten(created bool) {
	if m == nil {
		return
	}
	action := "updated"
	if created {
		action = "created"
	}
	m.submissions.WithLabelValues(action).Inc()
}

func (m *Metrics) AssignmentFailed() {
	if m == nil {
		return
	}
	m.assignmentFailures.Inc()
}

func (m *Metrics) EvaluationRecorded() {
	if m == nil {
		return
	}
	m.evaluationsRecorded.Inc()
}

func (m *Metrics) SubmissionEvaluated() {
	if m == nil {
		return
	}
	m.submissionsEvaluated.Inc()
}

func (m *Metrics) SetOverdue(n int) {
	if m == nil {
		return
	}
	m.overdueReviews.Set(float64(n))
}

func (m *Metrics) ChatConnected() {
	if m == nil {
		return
	}
	m.chatConnections.Inc()
}

func (m *Metrics) ChatDisconnected() {
	if m == nil {
		return
	}
	m.chatConnections.Dec()
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
