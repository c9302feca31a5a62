package model

import (
	"fmt"
	"strings"
	"time"

	"pos-provisioning/internal/domain"

	"github.com/google/uuid"
)

type LandingStatus string

const (
	LandingStatusPending        LandingStatus = "pending"
	LandingStatusPaymentPending LandingStatus = "payment_pending"
	LandingStatusProvisioned    LandingStatus = "provisioned"
)

// CanTransitionTo enforces pending -> payment_pending -> provisioned.
// A pending checkout may be provisioned directly when the payment was
// confirmed before the checkout step was recorded.
func (s LandingStatus) CanTransitionTo(next LandingStatus) bool {
	switch s {
	case LandingStatusPending:
		return next == LandingStatusPaymentPending || next == LandingStatusProvisioned
	case LandingStatusPaymentPending:
		return next == LandingStatusProvisioned
	}
	return false
}

// LandingSubscription is the checkout-stage record created before payment.
type LandingSubscription struct {
	ID                 string
	Email              string
	Name               string
	BusinessName       string
	Phone              string
	PlanID             string
	BillingCycle       BillingCycle
	TenantID           *string // set for authenticated checkouts
	UserID             *string
	IsUpgrade          bool
	IsDowngrade        bool
	PreviousPlanID     *string
	Status             LandingStatus
	SubscriptionID     *string
	ProvisionedUserID  *string
	ProvisionedStoreID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewLandingSubscription(email, name, businessName, planID string, cycle BillingCycle) (*LandingSubscription, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") || name == "" || planID == "" || !cycle.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &LandingSubscription{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		BusinessName: strings.TrimSpace(businessName),
		PlanID:       planID,
		BillingCycle: cycle,
		Status:       LandingStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Transition moves the record to next or fails with ErrInvalidTransition.
func (l *LandingSubscription) Transition(next LandingStatus) error {
	if !l.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, l.Status, next)
	}
	l.Status = next
	l.UpdatedAt = time.Now()
	return nil
}

// IsProvisioned is true once the record reached its terminal state.
func (l *LandingSubscription) IsProvisioned() bool {
	return l.Status == LandingStatusProvisioned && l.SubscriptionID != nil
}

// TenantName is the display name used when a tenant is created for this checkout.
func (l *LandingSubscription) TenantName() string {
	if l.BusinessName != "" {
		return l.BusinessName
	}
	return DefaultBusinessName(l.Name)
}

// MarkProvisioned records the provisioned entities and finalizes the record.
func (l *LandingSubscription) MarkProvisioned(subscriptionID, userID, storeID string) error {
	if err := l.Transition(LandingStatusProvisioned); err != nil {
		return err
	}
	l.SubscriptionID = &subscriptionID
	l.ProvisionedUserID = &userID
	l.ProvisionedStoreID = &storeID
	return nil
}
