//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"pos-provisioning/internal/domain/model"
)

func limit(n int64) *int64 { return &n }

// seedCatalog installs the Basic / Pro / Enterprise catalog and returns the
// plans by slug.
func seedCatalog(t *testing.T, db *memDB) map[string]*model.Plan {
	t.Helper()
	ctx := context.Background()
	repo := &memPlanRepo{db}

	type entry struct {
		slug, name string
		price      int64
		sort       int
		features   []model.PlanFeature
	}
	catalog := []entry{
		{"basic", "Basic", 69000, 1, []model.PlanFeature{
			{FeatureCode: model.FeatureMaxStores, LimitValue: limit(1), IsEnabled: true},
			{FeatureCode: model.FeatureMaxUsers, LimitValue: limit(2), IsEnabled: true},
			{FeatureCode: model.FeatureMaxProducts, LimitValue: limit(100), IsEnabled: true},
			{FeatureCode: model.FeatureMaxTransactionsPerYear, LimitValue: limit(1000), IsEnabled: true},
			{FeatureCode: model.FeatureAllowLoyalty, IsEnabled: false},
		}},
		{"pro", "Pro", 149000, 2, []model.PlanFeature{
			{FeatureCode: model.FeatureMaxStores, LimitValue: limit(3), IsEnabled: true},
			{FeatureCode: model.FeatureMaxUsers, LimitValue: limit(10), IsEnabled: true},
			{FeatureCode: model.FeatureMaxProducts, LimitValue: limit(1000), IsEnabled: true},
			{FeatureCode: model.FeatureMaxTransactionsPerYear, LimitValue: limit(10000), IsEnabled: true},
			{FeatureCode: model.FeatureAllowLoyalty, IsEnabled: true},
		}},
		{"enterprise", "Enterprise", 349000, 3, []model.PlanFeature{
			{FeatureCode: model.FeatureMaxStores, LimitValue: limit(20), IsEnabled: true},
			{FeatureCode: model.FeatureMaxTransactionsPerYear, LimitValue: nil, IsEnabled: true},
			{FeatureCode: model.FeatureAllowLoyalty, IsEnabled: true},
			{FeatureCode: model.FeatureAllowReports, IsEnabled: true},
		}},
	}

	out := map[string]*model.Plan{}
	for _, e := range catalog {
		p, err := model.NewPlan("plan-"+e.slug, e.slug, e.name, e.price, e.sort, 30)
		if err != nil {
			t.Fatalf("NewPlan(%s): %v", e.slug, err)
		}
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("seed plan: %v", err)
		}
		for i := range e.features {
			e.features[i].PlanID = p.ID
		}
		if err := repo.SaveFeatures(ctx, nil, p.ID, e.features); err != nil {
			t.Fatalf("seed features: %v", err)
		}
		out[e.slug] = p
	}
	return out
}

type checkoutOpt func(l *model.LandingSubscription)

func withTenant(tenantID, userID string) checkoutOpt {
	return func(l *model.LandingSubscription) {
		l.TenantID = &tenantID
		if userID != "" {
			l.UserID = &userID
		}
	}
}

func withCycle(c model.BillingCycle) checkoutOpt {
	return func(l *model.LandingSubscription) { l.BillingCycle = c }
}

func withBusiness(name string) checkoutOpt {
	return func(l *model.LandingSubscription) { l.BusinessName = name }
}

// seedPaidCheckout stores a checkout in payment_pending with a paid payment.
func seedPaidCheckout(t *testing.T, db *memDB, email, name string, plan *model.Plan, opts ...checkoutOpt) (*model.LandingSubscription, *model.SubscriptionPayment) {
	t.Helper()
	return seedCheckout(t, db, email, name, plan, model.PaymentStatusPaid, opts...)
}

func seedCheckout(t *testing.T, db *memDB, email, name string, plan *model.Plan, status model.PaymentStatus, opts ...checkoutOpt) (*model.LandingSubscription, *model.SubscriptionPayment) {
	t.Helper()
	ctx := context.Background()
	l, err := model.NewLandingSubscription(email, name, "", plan.ID, model.BillingMonthly)
	if err != nil {
		t.Fatalf("NewLandingSubscription: %v", err)
	}
	for _, o := range opts {
		o(l)
	}
	if err := l.Transition(model.LandingStatusPaymentPending); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := (&memLandingRepo{db}).Save(ctx, nil, l); err != nil {
		t.Fatalf("save landing: %v", err)
	}
	now := time.Now()
	p := &model.SubscriptionPayment{
		ID:                    uuid.NewString(),
		LandingSubscriptionID: l.ID,
		Amount:                plan.Price,
		Currency:              "IDR",
		Status:                status,
		GatewayReference:      "ref-" + uuid.NewString(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if status == model.PaymentStatusPaid {
		p.PaidAt = &now
	}
	if err := (&memPaymentRepo{db}).Save(ctx, nil, p); err != nil {
		t.Fatalf("save payment: %v", err)
	}
	return l, p
}

func usageByType(usage []*model.SubscriptionUsage) map[string]*model.SubscriptionUsage {
	out := make(map[string]*model.SubscriptionUsage, len(usage))
	for _, u := range usage {
		out[u.FeatureType] = u
	}
	return out
}
