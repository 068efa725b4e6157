package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus collectors.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	calendarSyncTotal    *prometheus.CounterVec
	calendarSyncDuration *prometheus.HistogramVec
	calendarEventsSynced *prometheus.CounterVec
	calendarRefreshTotal *prometheus.CounterVec

	transcriptionsTotal *prometheus.CounterVec
	tasksExtracted      prometheus.Counter
	voiceSessions       prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		calendarSyncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendar_sync_total",
				Help: "Total number of calendar syncs by provider and result",
			},
			[]string{"provider", "result"},
		),
		calendarSyncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "calendar_sync_duration_seconds",
				Help:    "Calendar sync duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		calendarEventsSynced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendar_events_synced_total",
				Help: "Total number of calendar events written by syncs",
			},
			[]string{"provider"},
		),
		calendarRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendar_token_refresh_total",
				Help: "Total number of OAuth access token refreshes by result",
			},
			[]string{"provider", "result"},
		),
		transcriptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transcriptions_total",
				Help: "Total number of transcripts analysed by result",
			},
			[]string{"result"},
		),
		tasksExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tasks_extracted_total",
				Help: "Total number of tasks extracted from transcripts",
			},
		),
		voiceSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "voice_sessions_active",
				Help: "Number of open voice websocket sessions",
			},
		),
	}
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCalendarSync records one sync attempt.
func (m *Metrics) ObserveCalendarSync(provider string, err error, events int, d time.Duration) {
	if m == nil {
		return
	}
	m.calendarSyncTotal.WithLabelValues(provider, result(err)).Inc()
	m.calendarSyncDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err == nil {
		m.calendarEventsSynced.WithLabelValues(provider).Add(float64(events))
	}
}

// ObserveTokenRefresh records one access token refresh.
func (m *Metrics) ObserveTokenRefresh(provider string, err error) {
	if m == nil {
		return
	}
	m.calendarRefreshTotal.WithLabelValues(provider, result(err)).Inc()
}

// ObserveTranscription records one transcript analysis.
func (m *Metrics) ObserveTranscription(tasks int, err error) {
	if m == nil {
		return
	}
	m.transcriptionsTotal.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.tasksExtracted.Add(float64(tasks))
	}
}

// VoiceSessionOpened increments the open voice session gauge.
func (m *Metrics) VoiceSessionOpened() {
	if m == nil {
		return
	}
	m.voiceSessions.Inc()
}

// VoiceSessionClosed decrements the open voice session gauge.
func (m *Metrics) VoiceSessionClosed() {
	if m == nil {
		return
	}
	m.voiceSessions.Dec()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
