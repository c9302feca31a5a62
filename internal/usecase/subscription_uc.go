// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
	"pos-provisioning/internal/infra/logging"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionView is a tenant's current subscription with its live counters.
type SubscriptionView struct {
	Subscription *model.Subscription
	Plan         *model.Plan
	Usage        []*model.SubscriptionUsage
}

type SubscriptionUseCase interface {
	Current(ctx context.Context, tenantID string) (*SubscriptionView, error)
	// FinishExpired moves active subscriptions past their end to expired.
	FinishExpired(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

type subscriptionUC struct {
	subs  repository.SubscriptionRepository
	usage repository.UsageRepository
	plans repository.PlanRepository
	log   *zerolog.Logger
	now   func() time.Time
}

func NewSubscriptionUseCase(repos Repositories, logger *zerolog.Logger) *subscriptionUC {
	compLog := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		subs:  repos.Subscriptions,
		usage: repos.Usage,
		plans: repos.Plans,
		log:   &compLog,
		now:   time.Now,
	}
}

func (u *subscriptionUC) Current(ctx context.Context, tenantID string) (*SubscriptionView, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Current")()

	sub, err := u.subs.FindCurrentByTenant(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := u.plans.FindByID(ctx, nil, sub.PlanID)
	if err != nil {
		return nil, err
	}
	usage, err := u.usage.ListBySubscription(ctx, nil, sub.ID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{Subscription: sub, Plan: plan, Usage: usage}, nil
}

func (u *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	n, err := u.subs.ExpireDue(ctx, nil, u.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.log.Info().Int("count", n).Msg("subscriptions expired")
	}
	return n, nil
}

func (u *subscriptionUC) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	return u.subs.CountByStatus(ctx, nil)
}
