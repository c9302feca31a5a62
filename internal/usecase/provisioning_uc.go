// File: internal/usecase/provisioning_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/domain/ports/repository"
	portuc "pos-provisioning/internal/domain/ports/usecase"
	"pos-provisioning/internal/infra/logging"
	"pos-provisioning/internal/infra/metrics"
)

// Compile-time checks
var (
	_ ProvisioningUseCase = (*provisioningUC)(nil)
	_ portuc.Provisioner  = (*provisioningUC)(nil)
)

// ProvisioningUseCase turns a paid checkout into tenant, user, store,
// subscription and usage rows.
type ProvisioningUseCase interface {
	// ProvisionFromPaidLandingSubscription loads both records and provisions.
	ProvisionFromPaidLandingSubscription(ctx context.Context, landingID, paymentID string) (*model.ProvisionResult, error)
	// Provision runs the whole sequence in one serializable transaction.
	// The returned result is never nil; on failure result.Err equals the error.
	Provision(ctx context.Context, landing *model.LandingSubscription, payment *model.SubscriptionPayment) (*model.ProvisionResult, error)
}

type provisioningUC struct {
	repos    Repositories
	plans    *PlanUseCase
	tm       repository.TransactionManager
	creds    adapter.CredentialIssuer
	notifier adapter.WelcomeNotifier
	log      *zerolog.Logger
	now      func() time.Time
}

func NewProvisioningUseCase(
	repos Repositories,
	tm repository.TransactionManager,
	creds adapter.CredentialIssuer,
	notifier adapter.WelcomeNotifier,
	logger *zerolog.Logger,
) *provisioningUC {
	compLog := logger.With().Str("component", "ProvisioningUC").Logger()
	return &provisioningUC{
		repos:    repos,
		plans:    NewPlanUseCase(repos.Plans),
		tm:       tm,
		creds:    creds,
		notifier: notifier,
		log:      &compLog,
		now:      time.Now,
	}
}

func (uc *provisioningUC) ProvisionFromPaidLandingSubscription(ctx context.Context, landingID, paymentID string) (*model.ProvisionResult, error) {
	landing, err := uc.repos.Landing.FindByID(ctx, nil, landingID)
	if err != nil {
		err = classifyProvisionErr(fmt.Errorf("landing subscription %s: %w", landingID, err))
		return model.FailedProvision(err), err
	}
	payment, err := uc.repos.Payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		err = classifyProvisionErr(fmt.Errorf("payment %s: %w", paymentID, err))
		return model.FailedProvision(err), err
	}
	res, err := uc.Provision(ctx, landing, payment)
	if err != nil && isRejection(err) {
		uc.recordFailure(ctx, payment.ID, err)
	}
	return res, err
}

// isRejection reports failures that retrying the same payment cannot fix.
// Unpaid payments are not rejections.
func isRejection(err error) bool {
	return !errors.Is(err, domain.ErrPersistence) && !errors.Is(err, domain.ErrPaymentNotPaid)
}

func (uc *provisioningUC) recordFailure(ctx context.Context, paymentID string, cause error) {
	if err := uc.repos.Payments.RecordProvisioningFailure(ctx, nil, paymentID, cause.Error()); err != nil {
		logging.With(ctx, uc.log).Error().Err(err).Str("payment_id", paymentID).Msg("record provisioning failure")
	}
}

func (uc *provisioningUC) Provision(ctx context.Context, landing *model.LandingSubscription, payment *model.SubscriptionPayment) (*model.ProvisionResult, error) {
	defer logging.TraceDuration(uc.log, "ProvisioningUC.Provision")()
	start := uc.now()
	ctx = logging.WithLandingID(ctx, landing.ID)
	log := logging.With(ctx, uc.log)

	res, err := uc.provision(ctx, landing, payment)
	if err != nil {
		err = classifyProvisionErr(err)
		metrics.ObserveProvisioning(outcomeOf(err), "", time.Since(start))
		log.Warn().Err(err).Str("payment_id", payment.ID).Msg("provisioning failed")
		return model.FailedProvision(err), err
	}

	outcome := "provisioned"
	if res.AlreadyProvisioned {
		outcome = "noop"
	}
	metrics.ObserveProvisioning(outcome, string(res.Action), time.Since(start))
	log.Info().
		Str("tenant_id", res.Tenant.ID).
		Str("subscription_id", res.Subscription.ID).
		Str("action", string(res.Action)).
		Bool("new_user", res.NewUser).
		Bool("already_provisioned", res.AlreadyProvisioned).
		Msg("checkout provisioned")

	if res.NewUser {
		uc.sendWelcome(ctx, res, landing)
	}
	return res, nil
}

func (uc *provisioningUC) provision(ctx context.Context, landing *model.LandingSubscription, payment *model.SubscriptionPayment) (*model.ProvisionResult, error) {
	if landing == nil || payment == nil {
		return nil, domain.ErrInvalidArgument
	}
	if !payment.IsPaid() {
		return nil, domain.ErrPaymentNotPaid
	}
	if payment.LandingSubscriptionID != landing.ID {
		return nil, fmt.Errorf("%w: payment %s belongs to another checkout", domain.ErrInvalidArgument, payment.ID)
	}
	if landing.IsProvisioned() {
		return uc.loadProvisioned(ctx, nil, landing)
	}
	plan, err := uc.plans.FindActive(ctx, nil, landing.PlanID)
	if err != nil {
		return nil, err
	}

	var (
		res   *model.ProvisionResult
		final *model.LandingSubscription
	)
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err = uc.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		// Re-read under lock: a concurrent delivery may have finished first.
		current, err := uc.repos.Landing.FindByID(ctx, tx, landing.ID)
		if err != nil {
			return err
		}
		if current.IsProvisioned() {
			res, err = uc.loadProvisioned(ctx, tx, current)
			return err
		}
		res, err = uc.provisionInTx(ctx, tx, current, payment, plan)
		final = current
		return err
	})
	if err != nil {
		return nil, classifyProvisionErr(err)
	}
	if final != nil && !res.AlreadyProvisioned {
		*landing = *final
	}
	return res, nil
}

func (uc *provisioningUC) provisionInTx(
	ctx context.Context,
	tx repository.Tx,
	landing *model.LandingSubscription,
	payment *model.SubscriptionPayment,
	plan *model.Plan,
) (*model.ProvisionResult, error) {
	now := uc.now()
	r := uc.repos

	tenant, _, err := resolveTenant(ctx, tx, r, landing)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	user, isNew, tempPassword, err := resolveUser(ctx, tx, r, uc.creds, landing)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if err := grantTenantAccess(ctx, tx, r, tenant.ID, user.ID, model.RoleOwner, now); err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}
	store, _, err := resolveStore(ctx, tx, r, tenant)
	if err != nil {
		return nil, fmt.Errorf("resolve store: %w", err)
	}
	if _, err := upsertOwnerAssignment(ctx, tx, r, store, user, now); err != nil {
		return nil, fmt.Errorf("assign store: %w", err)
	}

	sub, err := uc.upsertSubscription(ctx, tx, tenant, plan, landing, now)
	if err != nil {
		return nil, fmt.Errorf("write subscription: %w", err)
	}
	usage, err := uc.resetUsage(ctx, tx, sub, plan, now)
	if err != nil {
		return nil, fmt.Errorf("reset usage: %w", err)
	}

	if err := landing.MarkProvisioned(sub.ID, user.ID, store.ID); err != nil {
		return nil, err
	}
	if err := r.Landing.Save(ctx, tx, landing); err != nil {
		return nil, fmt.Errorf("finalize checkout: %w", err)
	}
	if err := r.Payments.LinkSubscription(ctx, tx, payment.ID, sub.ID); err != nil {
		return nil, fmt.Errorf("link payment: %w", err)
	}
	payment.SubscriptionID = &sub.ID

	return &model.ProvisionResult{
		Success:           true,
		Tenant:            tenant,
		User:              user,
		Store:             store,
		Subscription:      sub,
		Usage:             usage,
		Action:            sub.Change.Action,
		NewUser:           isNew,
		TemporaryPassword: tempPassword,
	}, nil
}

// upsertSubscription creates the tenant's subscription or moves the existing
// row to plan. It never inserts a second row for a tenant that has one.
func (uc *provisioningUC) upsertSubscription(
	ctx context.Context,
	tx repository.Tx,
	tenant *model.Tenant,
	plan *model.Plan,
	landing *model.LandingSubscription,
	now time.Time,
) (*model.Subscription, error) {
	r := uc.repos
	existing, err := r.Subscriptions.FindCurrentByTenant(ctx, tx, tenant.ID)
	if errors.Is(err, domain.ErrNotFound) {
		sub, err := model.NewSubscription(tenant.ID, plan, landing.BillingCycle, now)
		if err != nil {
			return nil, err
		}
		return sub, r.Subscriptions.Save(ctx, tx, sub)
	}
	if err != nil {
		return nil, err
	}

	action, err := uc.classify(ctx, tx, existing, plan, landing)
	if err != nil {
		return nil, err
	}
	current, err := r.Usage.ListBySubscription(ctx, tx, existing.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	backup := lo.Map(current, func(u *model.SubscriptionUsage, _ int) model.UsageSnapshot { return u.Snapshot() })

	change := model.ChangeFor(action, existing.PlanID, backup)
	if err := existing.ApplyPlanChange(plan, landing.BillingCycle, change, now); err != nil {
		return nil, err
	}
	if err := r.Subscriptions.Save(ctx, tx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// classify compares sort orders of the previous and the new plan. When the
// previous plan is no longer in the catalog the checkout flags decide.
func (uc *provisioningUC) classify(ctx context.Context, tx repository.Tx, existing *model.Subscription, plan *model.Plan, landing *model.LandingSubscription) (model.ChangeAction, error) {
	if existing.PlanID == plan.ID {
		return model.ActionRenewal, nil
	}
	previous, err := uc.repos.Plans.FindByID(ctx, tx, existing.PlanID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		switch {
		case landing.IsUpgrade:
			return model.ActionUpgrade, nil
		case landing.IsDowngrade:
			return model.ActionDowngrade, nil
		}
		return model.ActionRenewal, nil
	case err != nil:
		return "", err
	}
	return model.ClassifyPlanChange(previous, plan), nil
}

// resetUsage recreates the usage counters of sub from the plan feature table.
func (uc *provisioningUC) resetUsage(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan, now time.Time) ([]*model.SubscriptionUsage, error) {
	features, err := uc.repos.Plans.ListFeatures(ctx, tx, plan.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	usage := model.UsageFromFeatures(sub.ID, features, now)
	if err := uc.repos.Usage.Replace(ctx, tx, sub.ID, usage); err != nil {
		return nil, err
	}
	return usage, nil
}

// loadProvisioned rebuilds the result of an earlier successful run.
func (uc *provisioningUC) loadProvisioned(ctx context.Context, tx repository.Tx, landing *model.LandingSubscription) (*model.ProvisionResult, error) {
	r := uc.repos
	if landing.SubscriptionID == nil {
		return nil, fmt.Errorf("%w: provisioned checkout without subscription", domain.ErrInvalidTransition)
	}
	sub, err := r.Subscriptions.FindByID(ctx, tx, *landing.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("provisioned subscription: %w", err)
	}
	tenant, err := r.Tenants.FindByID(ctx, tx, sub.TenantID)
	if err != nil {
		return nil, fmt.Errorf("provisioned tenant: %w", err)
	}
	res := &model.ProvisionResult{
		Success:            true,
		Tenant:             tenant,
		Subscription:       sub,
		Action:             sub.Change.Action,
		AlreadyProvisioned: true,
	}
	if landing.ProvisionedUserID != nil {
		if res.User, err = r.Users.FindByID(ctx, tx, *landing.ProvisionedUserID); err != nil {
			return nil, fmt.Errorf("provisioned user: %w", err)
		}
	}
	if landing.ProvisionedStoreID != nil {
		if res.Store, err = r.Stores.FindByID(ctx, tx, *landing.ProvisionedStoreID); err != nil {
			return nil, fmt.Errorf("provisioned store: %w", err)
		}
	}
	if res.Usage, err = r.Usage.ListBySubscription(ctx, tx, sub.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return res, nil
}

func (uc *provisioningUC) sendWelcome(ctx context.Context, res *model.ProvisionResult, landing *model.LandingSubscription) {
	planName := ""
	if plan, err := uc.plans.Get(ctx, landing.PlanID); err == nil {
		planName = plan.Name
	}
	msg := adapter.WelcomeMessage{
		Name:              res.User.Name,
		Email:             res.User.Email,
		TemporaryPassword: res.TemporaryPassword,
		TenantName:        res.Tenant.Name,
		PlanName:          planName,
	}
	if err := uc.notifier.SendWelcome(ctx, msg); err != nil {
		metrics.IncWelcomeEmail("failed")
		logging.With(ctx, uc.log).Error().Err(err).Str("user_id", res.User.ID).Msg("welcome email not sent")
		return
	}
	metrics.IncWelcomeEmail("sent")
}

// classifyProvisionErr keeps business errors as they are and marks everything
// else as a retriable persistence failure.
func classifyProvisionErr(err error) error {
	if errors.Is(err, domain.ErrPersistence) {
		return err
	}
	for _, business := range []error{
		domain.ErrPaymentNotPaid,
		domain.ErrPlanNotFound,
		domain.ErrInvalidArgument,
		domain.ErrInvalidTransition,
		domain.ErrNotFound,
	} {
		if errors.Is(err, business) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrPaymentNotPaid):
		return "payment_not_paid"
	case errors.Is(err, domain.ErrPlanNotFound):
		return "plan_not_found"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_failure"
	}
	return "rejected"
}
