package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // checkout created; awaiting gateway confirmation
	PaymentStatusPaid    PaymentStatus = "paid"    // confirmed by gateway
	PaymentStatusFailed  PaymentStatus = "failed"  // gateway reported failure
	PaymentStatusExpired PaymentStatus = "expired" // checkout abandoned
)

// SubscriptionPayment echoes the gateway state of a checkout payment. It is
// the trigger input of provisioning and is linked back to the subscription
// once consumed.
type SubscriptionPayment struct {
	ID                    string
	LandingSubscriptionID string
	Amount                int64 // minor units
	Currency              string
	Status                PaymentStatus
	GatewayReference      string  // our reference sent to the gateway
	GatewayTransactionID  *string // provider transaction id after confirmation
	PaidAt                *time.Time
	SubscriptionID        *string
	// ProvisioningFailures counts provisioning attempts rejected for a
	// business reason; ProvisioningError keeps the last reason.
	ProvisioningFailures int
	ProvisioningError    *string
	CreatedAt            time.Time
	UpdatedAt             time.Time
}

func (p *SubscriptionPayment) IsPaid() bool {
	return p != nil && p.Status == PaymentStatusPaid
}
