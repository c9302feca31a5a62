// File: internal/usecase/entitlement_uc.go
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
	"pos-provisioning/internal/domain/ports/repository"
	"pos-provisioning/internal/infra/logging"
)

var _ EntitlementUseCase = (*entitlementUC)(nil)

// Entitlement is what a tenant's current plan grants for one feature code.
// Limit is nil for unlimited features; Used and Remaining are only set for
// features backed by a usage counter.
type Entitlement struct {
	FeatureCode      string
	Enabled          bool
	Limit            *int64
	Used             int64
	Remaining        *int64
	SoftCapTriggered bool
}

type EntitlementUseCase interface {
	Check(ctx context.Context, tenantID, featureCode string) (*Entitlement, error)
	// Consume adds n to a usage counter. Going over the quota raises the
	// soft-cap flag; reaching the hard cap fails with ErrQuotaExceeded and
	// leaves the counter unchanged.
	Consume(ctx context.Context, tenantID, featureType string, n int64) (*model.SubscriptionUsage, error)
	// Authorize reports ErrForbidden unless user holds permission on tenant.
	Authorize(ctx context.Context, userID, tenantID string, permission model.Permission) error
}

type entitlementUC struct {
	repos Repositories
	tm    repository.TransactionManager
	log   *zerolog.Logger
	now   func() time.Time
}

func NewEntitlementUseCase(repos Repositories, tm repository.TransactionManager, logger *zerolog.Logger) *entitlementUC {
	compLog := logger.With().Str("component", "EntitlementUC").Logger()
	return &entitlementUC{repos: repos, tm: tm, log: &compLog, now: time.Now}
}

func (u *entitlementUC) activeSubscription(ctx context.Context, tx repository.Tx, tenantID string) (*model.Subscription, error) {
	sub, err := u.repos.Subscriptions.FindCurrentByTenant(ctx, tx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	if !sub.IsActive(u.now()) {
		return nil, domain.ErrNoActiveSubscription
	}
	return sub, nil
}

func (u *entitlementUC) Check(ctx context.Context, tenantID, featureCode string) (*Entitlement, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Check")()

	sub, err := u.activeSubscription(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}
	features, err := u.repos.Plans.ListFeatures(ctx, nil, sub.PlanID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	ent := &Entitlement{FeatureCode: featureCode}
	f, ok := lo.Find(features, func(f model.PlanFeature) bool { return f.FeatureCode == featureCode })
	if !ok || !f.IsEnabled {
		return ent, nil
	}
	ent.Enabled = true
	ent.Limit = f.LimitValue

	ft, tracked := model.UsageFeatureType(featureCode)
	if !tracked || f.LimitValue == nil {
		return ent, nil
	}
	usage, err := u.repos.Usage.ListBySubscription(ctx, nil, sub.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	remaining := *f.LimitValue
	if c, ok := lo.Find(usage, func(c *model.SubscriptionUsage) bool { return c.FeatureType == ft }); ok {
		ent.Used = c.CurrentUsage
		ent.SoftCapTriggered = c.SoftCapTriggered
		remaining = c.Remaining()
	}
	ent.Remaining = &remaining
	return ent, nil
}

func (u *entitlementUC) Consume(ctx context.Context, tenantID, featureType string, n int64) (*model.SubscriptionUsage, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Consume")()
	if n <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	var out *model.SubscriptionUsage
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.activeSubscription(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		counters, err := u.repos.Usage.ListBySubscription(ctx, tx, sub.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		c, ok := lo.Find(counters, func(c *model.SubscriptionUsage) bool { return c.FeatureType == featureType })
		if !ok {
			// No counter means the plan does not meter this feature.
			return fmt.Errorf("%w: %s is not metered", domain.ErrFeatureDisabled, featureType)
		}
		if c.CurrentUsage+n > c.HardCap() {
			return fmt.Errorf("%w: %s at %d of %d", domain.ErrQuotaExceeded, featureType, c.CurrentUsage, c.AnnualQuota)
		}
		updated, err := u.repos.Usage.Increment(ctx, tx, sub.ID, featureType, n)
		if err != nil {
			return err
		}
		if updated.CurrentUsage > updated.AnnualQuota && !updated.SoftCapTriggered {
			if err := u.repos.Usage.SetSoftCap(ctx, tx, sub.ID, featureType, true); err != nil {
				return err
			}
			updated.SoftCapTriggered = true
			logging.With(ctx, u.log).Warn().
				Str("tenant_id", tenantID).
				Str("feature", featureType).
				Int64("usage", updated.CurrentUsage).
				Int64("quota", updated.AnnualQuota).
				Msg("soft cap reached")
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *entitlementUC) Authorize(ctx context.Context, userID, tenantID string, permission model.Permission) error {
	grants, err := u.repos.Access.ListByUser(ctx, nil, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if !model.HasPermission(grants, userID, tenantID, permission) {
		return domain.ErrForbidden
	}
	return nil
}
