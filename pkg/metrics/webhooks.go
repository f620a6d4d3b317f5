package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeUnknown = "unknown_topic"
	OutcomeTimeout = "timeout"
)

// WebhookMetrics tracks dispatch outcomes and notification deliveries.
type WebhookMetrics struct {
	dispatched *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	deliveries *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook pipeline metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_dispatch_total",
		Help:      "Webhook dispatches by topic and outcome.",
	}, []string{"topic", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_dispatch_duration_seconds",
		Help:      "Time spent running a topic handler.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_delivery_total",
		Help:      "Notification delivery attempts by notification type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(dispatched, duration, deliveries)
	return &WebhookMetrics{
		dispatched: dispatched,
		duration:   duration,
		deliveries: deliveries,
	}
}

// ObserveDispatch records a dispatch outcome and, for known topics, its duration.
func (m *WebhookMetrics) ObserveDispatch(topic, outcome string, duration time.Duration) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(topic), normalizeLabel(outcome)).Inc()
	if outcome != OutcomeUnknown {
		m.duration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
	}
}

// IncDelivery counts a delivery attempt for the notification type.
func (m *WebhookMetrics) IncDelivery(notificationType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(notificationType), normalizeLabel(outcome)).Inc()
}
