package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Conversation metrics
	InboundMessages   *prometheus.CounterVec
	ActionDispatches  *prometheus.CounterVec
	MenuResolutions   *prometheus.CounterVec
	RegistrationSteps *prometheus.CounterVec

	// Slot ledger metrics
	SlotReservations prometheus.Counter
	SlotConflicts    prometheus.Counter
	SlotReleases     prometheus.Counter

	// Payment metrics
	PaymentLinksCreated prometheus.Counter
	PaymentWebhooks     *prometheus.CounterVec
	ActivePollers       prometheus.Gauge

	// Gateway metrics
	GatewaySends    *prometheus.CounterVec
	GatewayFailures *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		InboundMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Total number of inbound webhook messages by type",
		}, []string{"type"}),
		ActionDispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_dispatches_total",
			Help:      "Total number of dispatched menu actions by operation",
		}, []string{"op", "status"}),
		MenuResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_resolutions_total",
			Help:      "Total number of menu resolutions",
		}, []string{"status"}),
		RegistrationSteps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_steps_total",
			Help:      "Total number of user registration steps processed",
		}, []string{"step"}),

		SlotReservations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_reservations_total",
			Help:      "Total number of successful slot reservations",
		}),
		SlotConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Total number of reservation attempts lost to exhausted capacity",
		}),
		SlotReleases: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_releases_total",
			Help:      "Total number of slot releases",
		}),

		PaymentLinksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_links_created_total",
			Help:      "Total number of payment links created",
		}),
		PaymentWebhooks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhooks_total",
			Help:      "Total number of payment gateway webhook events",
		}, []string{"event", "status"}),
		ActivePollers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "payment_pollers_active",
			Help:      "Current number of running payment status pollers",
		}),

		GatewaySends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_sends_total",
			Help:      "Total number of outbound messages by kind",
		}, []string{"kind"}),
		GatewayFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_failures_total",
			Help:      "Total number of failed outbound sends by kind",
		}, []string{"kind"}),
		GatewayLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_send_duration_seconds",
			Help:      "Duration of outbound message gateway calls",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"kind"}),
	}
}
