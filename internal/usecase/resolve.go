package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/domain/ports/repository"
)

// Repositories bundles the ports that take part in provisioning. Every call
// made through it during provisioning receives the same Tx.
type Repositories struct {
	Tenants       repository.TenantRepository
	Access        repository.TenantAccessRepository
	Users         repository.UserRepository
	Stores        repository.StoreRepository
	Assignments   repository.StoreAssignmentRepository
	Plans         repository.PlanRepository
	Subscriptions repository.SubscriptionRepository
	Usage         repository.UsageRepository
	Landing       repository.LandingSubscriptionRepository
	Payments      repository.PaymentRepository
}

// resolveOrCreate returns the entity found by find, or the one built and
// persisted by create when find reports ErrNotFound. created tells which path ran.
func resolveOrCreate[T any](find func() (T, error), create func() (T, error)) (entity T, created bool, err error) {
	entity, err = find()
	if err == nil {
		return entity, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return entity, false, err
	}
	entity, err = create()
	if err != nil {
		return entity, false, err
	}
	return entity, true, nil
}

// resolveTenant reuses the tenant of an authenticated checkout, otherwise finds
// or creates one keyed by the checkout email.
func resolveTenant(ctx context.Context, tx repository.Tx, r Repositories, landing *model.LandingSubscription) (*model.Tenant, bool, error) {
	if landing.TenantID != nil && *landing.TenantID != "" {
		t, err := r.Tenants.FindByID(ctx, tx, *landing.TenantID)
		if err != nil {
			return nil, false, fmt.Errorf("checkout tenant %s: %w", *landing.TenantID, err)
		}
		return t, false, nil
	}
	return resolveOrCreate(
		func() (*model.Tenant, error) { return r.Tenants.FindByEmail(ctx, tx, landing.Email) },
		func() (*model.Tenant, error) {
			t, err := model.NewTenant(landing.TenantName(), landing.Email)
			if err != nil {
				return nil, err
			}
			return t, r.Tenants.Save(ctx, tx, t)
		},
	)
}

// resolveUser reuses the user of an authenticated checkout, otherwise finds or
// creates one by email. A created user gets a temporary password, returned in
// clear text so it can be mailed; only the hash is stored.
func resolveUser(ctx context.Context, tx repository.Tx, r Repositories, creds adapter.CredentialIssuer, landing *model.LandingSubscription) (*model.User, bool, string, error) {
	if landing.UserID != nil && *landing.UserID != "" {
		u, err := r.Users.FindByID(ctx, tx, *landing.UserID)
		if err != nil {
			return nil, false, "", fmt.Errorf("checkout user %s: %w", *landing.UserID, err)
		}
		return u, false, "", nil
	}
	var tempPassword string
	u, created, err := resolveOrCreate(
		func() (*model.User, error) { return r.Users.FindByEmail(ctx, tx, landing.Email) },
		func() (*model.User, error) {
			pwd, err := creds.TemporaryPassword()
			if err != nil {
				return nil, err
			}
			hash, err := creds.Hash(pwd)
			if err != nil {
				return nil, err
			}
			u, err := model.NewUser("", landing.Name, landing.Email, hash)
			if err != nil {
				return nil, err
			}
			if err := r.Users.Save(ctx, tx, u); err != nil {
				return nil, err
			}
			tempPassword = pwd
			return u, nil
		},
	)
	if err != nil {
		return nil, false, "", err
	}
	return u, created, tempPassword, nil
}

func grantTenantAccess(ctx context.Context, tx repository.Tx, r Repositories, tenantID, userID string, role model.Role, now time.Time) error {
	return r.Access.Upsert(ctx, tx, &model.TenantAccess{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
	})
}

// resolveStore returns the tenant's first store, creating the default store
// only when the tenant has none. Existing stores are never modified.
func resolveStore(ctx context.Context, tx repository.Tx, r Repositories, tenant *model.Tenant) (*model.Store, bool, error) {
	stores, err := r.Stores.ListByTenant(ctx, tx, tenant.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	if len(stores) > 0 {
		return stores[0], false, nil
	}
	s, err := model.NewStore(tenant.ID, model.DefaultStoreName)
	if err != nil {
		return nil, false, err
	}
	if err := r.Stores.Save(ctx, tx, s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// upsertOwnerAssignment makes user an owner of store. The assignment becomes
// primary only when the user has no primary assignment yet.
func upsertOwnerAssignment(ctx context.Context, tx repository.Tx, r Repositories, store *model.Store, user *model.User, now time.Time) (*model.StoreAssignment, error) {
	a, err := r.Assignments.Find(ctx, tx, store.ID, user.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a = &model.StoreAssignment{StoreID: store.ID, UserID: user.ID, CreatedAt: now}
	case err != nil:
		return nil, err
	}
	a.Role = model.RoleOwner
	a.UpdatedAt = now
	if !a.IsPrimary {
		_, err := r.Assignments.FindPrimaryByUser(ctx, tx, user.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.IsPrimary = true
		case err != nil:
			return nil, err
		}
	}
	if err := r.Assignments.Upsert(ctx, tx, a); err != nil {
		return nil, err
	}
	return a, nil
}
