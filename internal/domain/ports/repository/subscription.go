package repository

import (
	"context"
	"time"

	"pos-provisioning/internal/domain/model"
)

// SubscriptionRepository is the port for tenant subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindCurrentByTenant returns the tenant's active subscription, or its most
	// recent one when none is active. Inside a transaction the row is locked.
	FindCurrentByTenant(ctx context.Context, tx Tx, tenantID string) (*model.Subscription, error)
	CountActiveByTenant(ctx context.Context, tx Tx, tenantID string) (int, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
	// ExpireDue marks active subscriptions whose period ended before now as
	// expired and reports how many rows changed.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) (int, error)
}

// UsageRepository is the port for per-feature usage counters.
type UsageRepository interface {
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.SubscriptionUsage, error)
	// Replace drops every counter of the subscription and inserts usage.
	Replace(ctx context.Context, tx Tx, subscriptionID string, usage []*model.SubscriptionUsage) error
	// Increment adds delta to a counter and returns the updated row.
	Increment(ctx context.Context, tx Tx, subscriptionID, featureType string, delta int64) (*model.SubscriptionUsage, error)
	SetSoftCap(ctx context.Context, tx Tx, subscriptionID, featureType string, triggered bool) error
}
