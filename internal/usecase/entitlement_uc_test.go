//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/usecase"
)

func provisionedTenant(t *testing.T, db *memDB, plan *model.Plan) *model.ProvisionResult {
	t.Helper()
	prov := usecase.NewProvisioningUseCase(db.repos(), newMemTxManager(db), &MockCredentials{}, &MockNotifier{}, newTestLogger())
	landing, payment := seedPaidCheckout(t, db, "ent@example.com", "Ent", plan)
	res, err := prov.Provision(context.Background(), landing, payment)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	return res
}

func TestEntitlementUseCase_Check(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	plans := seedCatalog(t, db)
	res := provisionedTenant(t, db, plans["basic"])
	uc := usecase.NewEntitlementUseCase(db.repos(), newMemTxManager(db), newTestLogger())

	tests := []struct {
		name        string
		feature     string
		enabled     bool
		limit       *int64
		wantRemains *int64
	}{
		{"metered feature", model.FeatureMaxTransactionsPerYear, true, limit(1000), limit(1000)},
		{"disabled feature", model.FeatureAllowLoyalty, false, nil, nil},
		{"unknown feature", "ALLOW_TELEPORT", false, nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ent, err := uc.Check(ctx, res.Tenant.ID, tc.feature)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if ent.Enabled != tc.enabled {
				t.Errorf("enabled = %v, want %v", ent.Enabled, tc.enabled)
			}
			if (ent.Limit == nil) != (tc.limit == nil) || (ent.Limit != nil && *ent.Limit != *tc.limit) {
				t.Errorf("limit = %v, want %v", ent.Limit, tc.limit)
			}
			if (ent.Remaining == nil) != (tc.wantRemains == nil) || (ent.Remaining != nil && *ent.Remaining != *tc.wantRemains) {
				t.Errorf("remaining = %v, want %v", ent.Remaining, tc.wantRemains)
			}
		})
	}

	t.Run("should require an active subscription", func(t *testing.T) {
		if _, err := uc.Check(ctx, "no-such-tenant", model.FeatureMaxStores); !errors.Is(err, domain.ErrNoActiveSubscription) {
			t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
		}
	})

	t.Run("should treat an expired subscription as inactive", func(t *testing.T) {
		sub := db.subs[res.Subscription.ID]
		saved := sub
		sub.EndsAt = time.Now().Add(-time.Hour)
		db.subs[sub.ID] = sub
		defer func() { db.subs[sub.ID] = saved }()

		if _, err := uc.Check(ctx, res.Tenant.ID, model.FeatureMaxStores); !errors.Is(err, domain.ErrNoActiveSubscription) {
			t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
		}
	})
}

func TestEntitlementUseCase_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("should raise the soft cap above the quota and stop at the hard cap", func(t *testing.T) {
		// --- Arrange ---
		db := newMemDB()
		plans := seedCatalog(t, db)
		res := provisionedTenant(t, db, plans["basic"])
		uc := usecase.NewEntitlementUseCase(db.repos(), newMemTxManager(db), newTestLogger())

		// --- Act & Assert ---
		u, err := uc.Consume(ctx, res.Tenant.ID, model.UsageTransactions, 1000)
		if err != nil || u.SoftCapTriggered {
			t.Fatalf("at quota: expected no soft cap, got %+v, %v", u, err)
		}
		u, err = uc.Consume(ctx, res.Tenant.ID, model.UsageTransactions, 1)
		if err != nil || !u.SoftCapTriggered {
			t.Fatalf("over quota: expected soft cap, got %+v, %v", u, err)
		}
		u, err = uc.Consume(ctx, res.Tenant.ID, model.UsageTransactions, 199)
		if err != nil || u.CurrentUsage != 1200 {
			t.Fatalf("at hard cap: expected 1200, got %+v, %v", u, err)
		}
		_, err = uc.Consume(ctx, res.Tenant.ID, model.UsageTransactions, 1)
		if !errors.Is(err, domain.ErrQuotaExceeded) {
			t.Fatalf("beyond hard cap: expected ErrQuotaExceeded, got %v", err)
		}
		ent, _ := uc.Check(ctx, res.Tenant.ID, model.FeatureMaxTransactionsPerYear)
		if ent.Used != 1200 || *ent.Remaining != 0 || !ent.SoftCapTriggered {
			t.Errorf("unexpected entitlement after consumption: %+v", ent)
		}
	})

	t.Run("should reject unmetered features and bad amounts", func(t *testing.T) {
		db := newMemDB()
		plans := seedCatalog(t, db)
		res := provisionedTenant(t, db, plans["enterprise"])
		uc := usecase.NewEntitlementUseCase(db.repos(), newMemTxManager(db), newTestLogger())

		if _, err := uc.Consume(ctx, res.Tenant.ID, model.UsageTransactions, 1); !errors.Is(err, domain.ErrFeatureDisabled) {
			t.Errorf("expected ErrFeatureDisabled, got %v", err)
		}
		if _, err := uc.Consume(ctx, res.Tenant.ID, model.UsageStores, 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestEntitlementUseCase_Authorize(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	uc := usecase.NewEntitlementUseCase(db.repos(), newMemTxManager(db), newTestLogger())
	_ = (&memAccessRepo{db}).Upsert(ctx, nil, &model.TenantAccess{TenantID: "t-1", UserID: "u-1", Role: model.RoleStaff})

	if err := uc.Authorize(ctx, "u-1", "t-1", model.PermCreateSale); err != nil {
		t.Errorf("staff should create sales: %v", err)
	}
	if err := uc.Authorize(ctx, "u-1", "t-1", model.PermManageStores); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("staff should not manage stores, got %v", err)
	}
	if err := uc.Authorize(ctx, "u-1", "t-2", model.PermCreateSale); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("grant must not leak across tenants, got %v", err)
	}
}
