package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CalendarSync(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCalendarSync("google", nil, 5, 20*time.Millisecond)
	m.ObserveCalendarSync("google", errors.New("boom"), 3, time.Millisecond)
	m.ObserveTokenRefresh("google", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.calendarSyncTotal.WithLabelValues("google", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calendarSyncTotal.WithLabelValues("google", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.calendarEventsSynced.WithLabelValues("google")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calendarRefreshTotal.WithLabelValues("google", "success")))
}

func TestMetrics_TranscriptionAndSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTranscription(2, nil)
	m.ObserveTranscription(0, errors.New("llm down"))
	m.VoiceSessionOpened()
	m.VoiceSessionOpened()
	m.VoiceSessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksExtracted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transcriptionsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.voiceSessions))
}

func TestMetrics_HTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTPRequest("GET", "/api/health", 200, time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.ObserveCalendarSync("google", nil, 1, time.Millisecond)
		m.ObserveTokenRefresh("google", nil)
		m.ObserveTranscription(1, nil)
		m.VoiceSessionOpened()
		m.VoiceSessionClosed()
	})
}
