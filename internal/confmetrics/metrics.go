package confmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ThrottledRequestsTotal counts requests rejected by the rate limiter.
	ThrottledRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zurichjs",
		Subsystem: "conf",
		Name:      "throttled_requests_total",
		Help:      "Total requests rejected with 429 by the rate limiter.",
	})

	// WebhookRequestsTotal counts Stripe webhook requests by event type and status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zurichjs",
		Subsystem: "conf",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zurichjs",
		Subsystem: "conf",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// InvoicesGeneratedTotal counts invoice generation attempts by outcome.
	InvoicesGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zurichjs",
		Subsystem: "conf",
		Name:      "invoices_generated_total",
		Help:      "Total sponsorship invoice generations by outcome.",
	}, []string{"outcome"})

	// EmailsSentTotal counts outbound transactional emails by outcome.
	EmailsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zurichjs",
		Subsystem: "conf",
		Name:      "emails_sent_total",
		Help:      "Total transactional emails by outcome.",
	}, []string{"outcome"})

	// TicketsByState tracks the number of tickets in each lifecycle state.
	TicketsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "zurichjs",
		Subsystem: "conf",
		Name:      "tickets_by_state",
		Help:      "Number of tickets by lifecycle state.",
	}, []string{"state"})
)
