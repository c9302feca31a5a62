package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(provisioningTotal, provisioningDuration, welcomeEmailsTotal, registrationsTotal)
}

var (
	// outcome: provisioned|noop|payment_not_paid|plan_not_found|persistence_failure|rejected
	// action (success only): new|upgrade|downgrade|renewal
	provisioningTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_total",
			Help: "Provisioning attempts by outcome and plan change action.",
		},
		[]string{"outcome", "action"},
	)

	provisioningDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provisioning_duration_seconds",
			Help:    "Duration of a provisioning attempt in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)

	welcomeEmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welcome_emails_total",
			Help: "Welcome emails by delivery status.",
		},
		[]string{"status"}, // 'sent', 'failed'
	)

	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_workspaces_total",
			Help: "Self-registration workspace provisioning by outcome.",
		},
		[]string{"outcome"}, // 'created', 'skipped', 'failed'
	)
)

func ObserveProvisioning(outcome, action string, d time.Duration) {
	provisioningTotal.WithLabelValues(norm(outcome), norm(action)).Inc()
	provisioningDuration.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func IncWelcomeEmail(status string) {
	welcomeEmailsTotal.WithLabelValues(norm(status)).Inc()
}

func IncRegistration(outcome string) {
	registrationsTotal.WithLabelValues(norm(outcome)).Inc()
}
