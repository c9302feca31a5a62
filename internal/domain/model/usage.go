package model

import "time"

// Usage counter names.
const (
	UsageTransactions = "transactions"
	UsageProducts     = "products"
	UsageUsers        = "users"
	UsageStores       = "stores"
)

// HardCapRatio is the share of the quota at which consumption is refused.
// Between 100% and this ratio consumption is allowed but flagged.
const HardCapRatio = 1.2

// SubscriptionUsage is a live counter of one feature tied to a subscription.
// (SubscriptionID, FeatureType) is unique.
type SubscriptionUsage struct {
	SubscriptionID   string
	FeatureType      string
	CurrentUsage     int64
	AnnualQuota      int64
	SoftCapTriggered bool
	ResetAt          time.Time
	UpdatedAt        time.Time
}

// UsageFromFeatures derives fresh zeroed counters from a plan feature table.
func UsageFromFeatures(subscriptionID string, features []PlanFeature, now time.Time) []*SubscriptionUsage {
	out := make([]*SubscriptionUsage, 0, len(features))
	for _, f := range features {
		if !f.TracksUsage() {
			continue
		}
		ft, _ := UsageFeatureType(f.FeatureCode)
		out = append(out, &SubscriptionUsage{
			SubscriptionID: subscriptionID,
			FeatureType:    ft,
			CurrentUsage:   0,
			AnnualQuota:    *f.LimitValue,
			ResetAt:        now,
			UpdatedAt:      now,
		})
	}
	return out
}

func (u *SubscriptionUsage) Snapshot() UsageSnapshot {
	return UsageSnapshot{
		FeatureType:      u.FeatureType,
		CurrentUsage:     u.CurrentUsage,
		AnnualQuota:      u.AnnualQuota,
		SoftCapTriggered: u.SoftCapTriggered,
	}
}

// Remaining never goes below zero.
func (u *SubscriptionUsage) Remaining() int64 {
	if u.CurrentUsage >= u.AnnualQuota {
		return 0
	}
	return u.AnnualQuota - u.CurrentUsage
}

// HardCap is the usage level at which consumption is refused.
func (u *SubscriptionUsage) HardCap() int64 {
	return int64(float64(u.AnnualQuota) * HardCapRatio)
}
