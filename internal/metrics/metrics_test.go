package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SubmissionWritten(true)
		m.AssignmentFailed()
		m.EvaluationRecorded()
		m.SubmissionEvaluated()
		m.SetOverdue(3)
		m.ChatConnected()
		m.ChatDisconnected()
		m.ObserveRequest(http.MethodGet, "/", 200, time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.SubmissionWritten(true)
	m.SubmissionWritten(true)
	m.SubmissionWritten(false)
	m.AssignmentFailed()
	m.SetOverdue(4)
	m.ChatConnected()
	m.ChatConnected()
	m.ChatDisconnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assignmentFailures))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.overdueReviews))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatConnections))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.EvaluationRecorded()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contest_evaluations_recorded_total 1")
}
