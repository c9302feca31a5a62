package metrics

import (
	"pos-provisioning/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsExpiredTotal,
		subscriptionsTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions processed by the expiry worker.",
		},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of tenant subscriptions by status.",
		},
		[]string{"status"}, // 'active', 'inactive', 'expired'
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusInactive,
		model.SubscriptionStatusExpired,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
