// Package metrics provides Prometheus metrics for the voice-intake-api service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks the number of open relay sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voice_intake_active_sessions",
			Help: "Number of currently open relay sessions",
		},
	)

	// SessionsOpened tracks the total number of sessions that reached open.
	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_intake_sessions_opened_total",
			Help: "Total number of relay sessions opened",
		},
	)

	// SessionsClosed tracks closed sessions by the side that ended them.
	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_intake_sessions_closed_total",
			Help: "Total number of relay sessions closed",
		},
		[]string{"side"},
	)

	// SessionsPurged tracks sessions removed by the janitor.
	SessionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_intake_sessions_purged_total",
			Help: "Total number of finished sessions purged from the store",
		},
	)

	// HandshakeDuration tracks the upstream handshake time.
	HandshakeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_intake_upstream_handshake_duration_seconds",
			Help:    "Duration of the upstream agent handshake",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	// FramesRelayed tracks relayed frames by direction and kind.
	FramesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_intake_frames_relayed_total",
			Help: "Total number of WebSocket frames relayed",
		},
		[]string{"direction", "kind"},
	)

	// AudioBytes tracks relayed audio payload bytes by direction.
	AudioBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_intake_audio_bytes_total",
			Help: "Total number of audio bytes relayed",
		},
		[]string{"direction"},
	)

	// ToolCalls tracks agent tool calls by tool name and outcome.
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_intake_tool_calls_total",
			Help: "Total number of agent tool calls handled",
		},
		[]string{"tool", "outcome"},
	)

	// WebhookDeliveries tracks webhook requests by outcome.
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_intake_webhook_deliveries_total",
			Help: "Total number of webhook deliveries received",
		},
		[]string{"outcome"},
	)

	// EventListeners tracks open server-sent event streams.
	EventListeners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voice_intake_event_listeners",
			Help: "Number of currently open event streams",
		},
	)

	// EventsDropped tracks events dropped for slow listeners.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_intake_events_dropped_total",
			Help: "Total number of events dropped because a listener was not keeping up",
		},
	)

	// HTTPRequests tracks HTTP requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_intake_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_intake_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// JanitorSweepDuration tracks the duration of store cleanup passes.
	JanitorSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voice_intake_janitor_sweep_duration_seconds",
			Help:    "Duration of session store cleanup passes",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)
)

// RecordSessionOpened increments session open metrics.
func RecordSessionOpened() {
	SessionsOpened.Inc()
	ActiveSessions.Inc()
}

// RecordSessionClosed records a session close by the side that ended it.
func RecordSessionClosed(side string) {
	SessionsClosed.WithLabelValues(side).Inc()
	ActiveSessions.Dec()
}

// RecordSessionsPurged records sessions removed by the janitor.
func RecordSessionsPurged(n int) {
	SessionsPurged.Add(float64(n))
}

// RecordHandshake records one upstream handshake.
func RecordHandshake(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	HandshakeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordWebhook records one webhook delivery.
func RecordWebhook(outcome string) {
	WebhookDeliveries.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
