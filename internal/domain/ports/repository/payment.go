package repository

import (
	"context"
	"time"

	"pos-provisioning/internal/domain/model"
)

// -----------------------------
// Landing subscriptions (checkout)
// -----------------------------

type LandingSubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, l *model.LandingSubscription) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.LandingSubscription, error)
}

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.SubscriptionPayment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPayment, error)
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.SubscriptionPayment, error)
	// MarkPaidIfPending flips a pending payment to paid. It reports false when
	// the payment was not pending anymore.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string, transactionID string, paidAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus) error
	LinkSubscription(ctx context.Context, tx Tx, id, subscriptionID string) error
	// RecordProvisioningFailure bumps the failure counter and stores reason.
	RecordProvisioningFailure(ctx context.Context, tx Tx, id, reason string) error
	// ListPaidUnprovisioned returns paid payments with no linked subscription
	// whose paid_at is older than olderThan and that failed fewer than
	// maxFailures times.
	ListPaidUnprovisioned(ctx context.Context, tx Tx, olderThan time.Time, maxFailures, limit int) ([]*model.SubscriptionPayment, error)
}
