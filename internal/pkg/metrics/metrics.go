// Package metrics exposes the Prometheus instrumentation for the
// collection pipeline. Collectors register on the default registry and
// are served at /metrics on the main app.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_webhooks_received_total",
		Help: "Inbound webhook deliveries by outcome (accepted, duplicate, rejected).",
	}, []string{"provider", "outcome"})

	WebhooksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_webhooks_processed_total",
		Help: "Webhook events that reached a terminal status.",
	}, []string{"provider", "result"})

	WebhookProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kore_webhook_processing_duration_seconds",
		Help:    "Time from picking up a stored webhook event to its terminal mark.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"provider"})

	CollectionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_collections_created_total",
		Help: "Collections successfully initiated at the provider.",
	}, []string{"provider"})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_collection_status_transitions_total",
		Help: "Admitted collection status transitions.",
	}, []string{"from", "to"})

	UpdatesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_collection_updates_skipped_total",
		Help: "Status updates rejected by the monotonic state machine.",
	}, []string{"reason"})

	LedgerEntriesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kore_ledger_entries_posted_total",
		Help: "Journal entries posted for settled collections.",
	})

	ProviderCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_provider_calls_total",
		Help: "Outbound PayWithAccount calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_jobs_processed_total",
		Help: "Background jobs by type and final status.",
	}, []string{"type", "status"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kore_events_published_total",
		Help: "Domain events handed to the broker, by outcome.",
	}, []string{"topic", "outcome"})

	JobQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kore_jobqueue_depth",
		Help: "Jobs waiting (pending) or in flight (processing).",
	}, []string{"state"})
)

func RecordWebhookReceived(provider, outcome string) {
	WebhooksReceivedTotal.WithLabelValues(provider, outcome).Inc()
}

func RecordWebhookProcessed(provider, result string, seconds float64) {
	WebhooksProcessedTotal.WithLabelValues(provider, result).Inc()
	WebhookProcessingDuration.WithLabelValues(provider).Observe(seconds)
}

func RecordCollectionCreated(provider string) {
	CollectionsCreatedTotal.WithLabelValues(provider).Inc()
}

func RecordStatusTransition(from, to string) {
	StatusTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordSkippedUpdate(reason string) {
	UpdatesSkippedTotal.WithLabelValues(reason).Inc()
}

func RecordLedgerEntryPosted() {
	LedgerEntriesPostedTotal.Inc()
}

func RecordProviderCall(operation, outcome string) {
	ProviderCallsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordJob(jobType, status string) {
	JobsProcessedTotal.WithLabelValues(jobType, status).Inc()
}

func RecordEventPublished(topic, outcome string) {
	EventsPublishedTotal.WithLabelValues(topic, outcome).Inc()
}

// SetQueueDepth refreshes the gauge for one queue state ("pending" or "processing").
func SetQueueDepth(state string, n float64) {
	JobQueueDepth.WithLabelValues(state).Set(n)
}
