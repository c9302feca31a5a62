// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/infra/logging"
)

var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutRequest is what the landing page submits.
type CheckoutRequest struct {
	Email        string
	Name         string
	BusinessName string
	Phone        string
	PlanID       string
	BillingCycle model.BillingCycle
	// TenantID and UserID are set when an existing customer changes plan.
	TenantID string
	UserID   string
}

type CheckoutUseCase interface {
	// Start records the checkout and its pending payment. The payment's
	// GatewayReference is what the gateway echoes back on confirmation.
	Start(ctx context.Context, req CheckoutRequest) (*model.LandingSubscription, *model.SubscriptionPayment, error)
	// Amount is the price charged for plan over cycle.
	Amount(plan *model.Plan, cycle model.BillingCycle) int64
}

type checkoutUC struct {
	repos        Repositories
	plans        *PlanUseCase
	currency     string
	discountMths int
	log          *zerolog.Logger
	now          func() time.Time
}

// NewCheckoutUseCase constructs the checkout use case. Yearly checkouts are
// charged 12 monthly prices minus discountMonths.
func NewCheckoutUseCase(repos Repositories, currency string, discountMonths int, logger *zerolog.Logger) *checkoutUC {
	if currency == "" {
		currency = "IDR"
	}
	if discountMonths < 0 || discountMonths >= 12 {
		discountMonths = 0
	}
	compLog := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		repos:        repos,
		plans:        NewPlanUseCase(repos.Plans),
		currency:     currency,
		discountMths: discountMonths,
		log:          &compLog,
		now:          time.Now,
	}
}

func (u *checkoutUC) Amount(plan *model.Plan, cycle model.BillingCycle) int64 {
	if cycle == model.BillingYearly {
		return plan.Price * int64(12-u.discountMths)
	}
	return plan.Price
}

func (u *checkoutUC) Start(ctx context.Context, req CheckoutRequest) (*model.LandingSubscription, *model.SubscriptionPayment, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.Start")()

	plan, err := u.plans.FindActive(ctx, nil, req.PlanID)
	if err != nil {
		return nil, nil, err
	}
	landing, err := model.NewLandingSubscription(req.Email, req.Name, req.BusinessName, plan.ID, req.BillingCycle)
	if err != nil {
		return nil, nil, err
	}
	landing.Phone = req.Phone
	if req.TenantID != "" {
		if err := u.markPlanChange(ctx, landing, req.TenantID, plan); err != nil {
			return nil, nil, err
		}
	}
	if req.UserID != "" {
		landing.UserID = &req.UserID
	}
	if err := u.repos.Landing.Save(ctx, nil, landing); err != nil {
		return nil, nil, fmt.Errorf("save checkout: %w", err)
	}

	now := u.now()
	payment := &model.SubscriptionPayment{
		ID:                    uuid.NewString(),
		LandingSubscriptionID: landing.ID,
		Amount:                u.Amount(plan, req.BillingCycle),
		Currency:              u.currency,
		Status:                model.PaymentStatusPending,
		GatewayReference:      "chk_" + uuid.NewString(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := u.repos.Payments.Save(ctx, nil, payment); err != nil {
		return nil, nil, fmt.Errorf("save payment: %w", err)
	}

	if err := landing.Transition(model.LandingStatusPaymentPending); err != nil {
		return nil, nil, err
	}
	if err := u.repos.Landing.Save(ctx, nil, landing); err != nil {
		return nil, nil, fmt.Errorf("save checkout: %w", err)
	}

	logging.With(ctx, u.log).Info().
		Str("landing_id", landing.ID).
		Str("plan", plan.Slug).
		Str("cycle", string(req.BillingCycle)).
		Int64("amount", payment.Amount).
		Msg("checkout started")
	return landing, payment, nil
}

// markPlanChange flags checkouts from tenants that already have a subscription.
func (u *checkoutUC) markPlanChange(ctx context.Context, landing *model.LandingSubscription, tenantID string, plan *model.Plan) error {
	if _, err := u.repos.Tenants.FindByID(ctx, nil, tenantID); err != nil {
		return fmt.Errorf("checkout tenant %s: %w", tenantID, err)
	}
	landing.TenantID = &tenantID

	current, err := u.repos.Subscriptions.FindCurrentByTenant(ctx, nil, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	prevID := current.PlanID
	landing.PreviousPlanID = &prevID
	previous, err := u.repos.Plans.FindByID(ctx, nil, prevID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch model.ClassifyPlanChange(previous, plan) {
	case model.ActionUpgrade:
		landing.IsUpgrade = true
	case model.ActionDowngrade:
		landing.IsDowngrade = true
	}
	return nil
}
