package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	// Send routing
	MessagesTotal        *prometheus.CounterVec
	SendAttempts         *prometheus.CounterVec
	SendFallbacks        prometheus.Counter
	SessionsDisconnected *prometheus.CounterVec
	SessionCacheLookups  *prometheus.CounterVec
	PrimaryRotations     prometheus.Counter

	// Backend client
	BackendRequestDuration *prometheus.HistogramVec

	// Quotas
	RateLimitDecisions *prometheus.CounterVec
	CounterStoreErrors *prometheus.CounterVec

	// Authentication
	AuthAttempts *prometheus.CounterVec

	// Background sweeps
	SweepAffected *prometheus.CounterVec

	// Kafka
	EventsPublished *prometheus.CounterVec
	EventErrors     *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics registers every collector with the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_messages_total",
				Help: "Outbound messages by final result",
			},
			[]string{"result"},
		),
		SendAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_send_attempts_total",
				Help: "Per-session send attempts by outcome",
			},
			[]string{"outcome"},
		),
		SendFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sanasend_send_fallbacks_total",
			Help: "Messages delivered by a session other than the first one tried",
		}),
		SessionsDisconnected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_sessions_marked_disconnected_total",
				Help: "Sessions transitioned to disconnected by the gateway",
			},
			[]string{"source"},
		),
		SessionCacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_session_cache_lookups_total",
				Help: "Connected-session cache lookups by result",
			},
			[]string{"result"},
		),
		PrimaryRotations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sanasend_primary_rotations_total",
			Help: "Primary session changes",
		}),

		BackendRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sanasend_backend_request_duration_seconds",
				Help:    "WhatsApp backend request duration by operation and result",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation", "result"},
		),

		RateLimitDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_rate_limit_decisions_total",
				Help: "Rate limit decisions by period and decision",
			},
			[]string{"period", "decision"},
		),
		CounterStoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_counter_store_errors_total",
				Help: "Counter store failures that were ignored (fail-open)",
			},
			[]string{"operation"},
		),

		AuthAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_api_key_auth_total",
				Help: "API key authentication attempts by outcome",
			},
			[]string{"outcome"},
		),

		SweepAffected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_session_sweep_affected_total",
				Help: "Sessions changed by background sweeps",
			},
			[]string{"sweep"},
		),

		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_events_published_total",
				Help: "Domain events published to Kafka",
			},
			[]string{"topic"},
		),
		EventErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanasend_event_errors_total",
				Help: "Domain events that failed to publish",
			},
			[]string{"topic"},
		),
	}
}

func orUnknown(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}

// RecordMessage records the final result of a logical send
func (m *Metrics) RecordMessage(result string) {
	m.MessagesTotal.WithLabelValues(orUnknown(result)).Inc()
}

// RecordSendAttempt records one per-session attempt
func (m *Metrics) RecordSendAttempt(success bool) {
	outcome := "failed"
	if success {
		outcome = "success"
	}
	m.SendAttempts.WithLabelValues(outcome).Inc()
}

// RecordFallback records a delivery that needed more than one session
func (m *Metrics) RecordFallback() {
	m.SendFallbacks.Inc()
}

// RecordSessionDisconnected records a session being marked disconnected
func (m *Metrics) RecordSessionDisconnected(source string) {
	m.SessionsDisconnected.WithLabelValues(orUnknown(source)).Inc()
}

// RecordCacheLookup records a connected-session cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SessionCacheLookups.WithLabelValues(result).Inc()
}

// RecordPrimaryRotation records a primary session change
func (m *Metrics) RecordPrimaryRotation() {
	m.PrimaryRotations.Inc()
}

// ObserveBackendRequest records backend latency
func (m *Metrics) ObserveBackendRequest(operation, result string, seconds float64) {
	m.BackendRequestDuration.WithLabelValues(orUnknown(operation), orUnknown(result)).Observe(seconds)
}

// RecordRateLimitDecision records an allow or deny decision
func (m *Metrics) RecordRateLimitDecision(period string, allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.RateLimitDecisions.WithLabelValues(orUnknown(period), decision).Inc()
}

// RecordCounterStoreError records an ignored counter store failure
func (m *Metrics) RecordCounterStoreError(operation string) {
	m.CounterStoreErrors.WithLabelValues(orUnknown(operation)).Inc()
}

// RecordAuth records an authentication outcome
func (m *Metrics) RecordAuth(outcome string) {
	m.AuthAttempts.WithLabelValues(orUnknown(outcome)).Inc()
}

// RecordSweep records how many sessions a sweep changed
func (m *Metrics) RecordSweep(sweep string, affected int) {
	if affected > 0 {
		m.SweepAffected.WithLabelValues(orUnknown(sweep)).Add(float64(affected))
	}
}

// RecordEventPublished records a published domain event
func (m *Metrics) RecordEventPublished(topic string) {
	m.EventsPublished.WithLabelValues(orUnknown(topic)).Inc()
}

// RecordEventError records a failed publish
func (m *Metrics) RecordEventError(topic string) {
	m.EventErrors.WithLabelValues(orUnknown(topic)).Inc()
}
