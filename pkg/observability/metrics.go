// Package observability holds the Prometheus metrics and OpenTelemetry
// tracing for the agent.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AgentMetrics holds all Prometheus metrics for the meeting agent.
// Labels stay low-cardinality; session ids never become label values.
type AgentMetrics struct {
	SessionsStartedTotal prometheus.Counter
	SessionsActive       prometheus.Gauge
	SessionsEndedTotal   *prometheus.CounterVec

	CaptionEventsTotal   *prometheus.CounterVec
	ChunksProcessedTotal *prometheus.CounterVec
	QuestionsAskedTotal  prometheus.Counter

	IntelligenceLatencySeconds *prometheus.HistogramVec
	SummariesTotal             *prometheus.CounterVec
	NotificationsTotal         *prometheus.CounterVec
}

// DefaultAgentMetrics creates metrics on the default registerer.
func DefaultAgentMetrics() *AgentMetrics {
	return NewAgentMetrics(prometheus.DefaultRegisterer)
}

// NewAgentMetrics creates a new set of agent metrics.
func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	factory := promauto.With(reg)

	return &AgentMetrics{
		SessionsStartedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scrumlink_sessions_started_total",
				Help: "Total meeting sessions started",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scrumlink_sessions_active",
				Help: "Sessions currently in a non-terminal state",
			},
		),
		SessionsEndedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrumlink_sessions_ended_total",
				Help: "Total sessions ended, by outcome",
			},
			[]string{"outcome"},
		),
		CaptionEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrumlink_caption_events_total",
				Help: "Total caption events received, by result",
			},
			[]string{"result"},
		),
		ChunksProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrumlink_chunks_processed_total",
				Help: "Total transcript chunks processed, by clean status",
			},
			[]string{"clean_status"},
		),
		QuestionsAskedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scrumlink_questions_asked_total",
				Help: "Total clarifying questions asked",
			},
		),
		IntelligenceLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scrumlink_intelligence_latency_seconds",
				Help:    "Intelligence service latency per operation",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 150},
			},
			[]string{"operation"},
		),
		SummariesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrumlink_summaries_total",
				Help: "Total final summaries generated, by status",
			},
			[]string{"status"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrumlink_notifications_total",
				Help: "Total notifications sent, by kind and status",
			},
			[]string{"kind", "status"},
		),
	}
}

// ChunkProcessed implements the pipeline metrics hook.
func (m *AgentMetrics) ChunkProcessed(_ string, cleanFallback bool) {
	status := "cleaned"
	if cleanFallback {
		status = "raw_fallback"
	}
	m.ChunksProcessedTotal.WithLabelValues(status).Inc()
}

// QuestionAsked implements the pipeline metrics hook.
func (m *AgentMetrics) QuestionAsked(_ string) {
	m.QuestionsAskedTotal.Inc()
}

// RecordSessionStarted records a new session.
func (m *AgentMetrics) RecordSessionStarted() {
	m.SessionsStartedTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnded records a finished session.
func (m *AgentMetrics) RecordSessionEnded(outcome string) {
	m.SessionsEndedTotal.WithLabelValues(outcome).Inc()
	m.SessionsActive.Dec()
}

// RecordCaptionEvent records a received caption event.
func (m *AgentMetrics) RecordCaptionEvent(result string) {
	m.CaptionEventsTotal.WithLabelValues(result).Inc()
}

// RecordIntelligenceLatency records one intelligence call.
func (m *AgentMetrics) RecordIntelligenceLatency(operation string, seconds float64) {
	m.IntelligenceLatencySeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordSummary records a summary attempt.
func (m *AgentMetrics) RecordSummary(status string) {
	m.SummariesTotal.WithLabelValues(status).Inc()
}

// RecordNotification records a notification attempt.
func (m *AgentMetrics) RecordNotification(kind, status string) {
	m.NotificationsTotal.WithLabelValues(kind, status).Inc()
}
