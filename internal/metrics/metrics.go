// Package metrics exposes Prometheus instrumentation for the registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tagreturn"

// Webhook outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeIgnored  = "ignored"
	OutcomeNoTag    = "no_tag"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Reconciliation directions.
const (
	DirectionStatus       = "status"
	DirectionSubscription = "subscription"
)

var (
	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by event kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	sweepDemoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_demoted_total",
			Help:      "Subscriptions moved to inactive by the expiry sweep.",
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of expiry sweep passes.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	reconcilePartial = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_partial_failures_total",
			Help:      "Reconciliations where the item record and the user copy could not both be written.",
		},
		[]string{"direction"},
	)

	itemsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_registered_total",
			Help:      "Items registered against a tag.",
		},
	)
)

// WebhookEvent counts one processed delivery.
func WebhookEvent(kind, outcome string) {
	webhookEvents.WithLabelValues(kind, outcome).Inc()
}

// SweepCompleted records a finished sweep pass.
func SweepCompleted(demoted int, seconds float64) {
	sweepDemoted.Add(float64(demoted))
	sweepDuration.Observe(seconds)
}

// ReconcilePartialFailure counts a partially applied reconciliation.
func ReconcilePartialFailure(direction string) {
	reconcilePartial.WithLabelValues(direction).Inc()
}

// ItemRegistered counts a registration.
func ItemRegistered() {
	itemsRegistered.Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
