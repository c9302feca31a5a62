package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		WebhookRequests,
		WebhookDuration,
	)
}

var (
	// Count of gateway webhook deliveries grouped by result and bounded reason.
	// result: ok|fail|duplicate
	// reason (fail only): bad_signature|bad_json|unknown_reference|amount_mismatch|confirm_error|method_not_allowed
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_requests_total",
			Help: "Count of payment gateway webhook deliveries by result and reason.",
		},
		[]string{"result", "reason"},
	)

	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_webhook_duration_seconds",
			Help:    "Duration of the payment webhook handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)
