//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/usecase"
)

func TestRegistrationUseCase_ProvisionFor(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a workspace for a user without tenants", func(t *testing.T) {
		// --- Arrange ---
		db := newMemDB()
		uc := usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), newTestLogger())
		user, _ := model.NewUser("", "Maya", "maya@example.com", "hash")
		_ = (&memUserRepo{db}).Save(ctx, nil, user)

		// --- Act ---
		res, err := uc.ProvisionFor(ctx, user)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res == nil {
			t.Fatal("expected a result for a fresh user")
		}
		if res.Tenant.Name != "Maya's Business" {
			t.Errorf("unexpected tenant name %q", res.Tenant.Name)
		}
		if res.Store.Name != model.DefaultStoreName {
			t.Errorf("unexpected store name %q", res.Store.Name)
		}
		if !res.Assignment.IsPrimary || res.Assignment.Role != model.RoleOwner {
			t.Errorf("expected primary owner assignment, got %+v", res.Assignment)
		}
		grants, _ := (&memAccessRepo{db}).ListByUser(ctx, nil, user.ID)
		if !model.HasRole(grants, user.ID, res.Tenant.ID, model.RoleOwner) {
			t.Error("expected owner grant on the new tenant")
		}
		if len(db.subs) != 0 {
			t.Error("registration must not create a subscription")
		}
	})

	t.Run("should do nothing for a user that already has access", func(t *testing.T) {
		db := newMemDB()
		uc := usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), newTestLogger())
		user, _ := model.NewUser("", "Noor", "noor@example.com", "hash")
		_ = (&memAccessRepo{db}).Upsert(ctx, nil, &model.TenantAccess{TenantID: "t-1", UserID: user.ID, Role: model.RoleStaff})

		res, err := uc.ProvisionFor(ctx, user)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res != nil {
			t.Errorf("expected no-op, got %+v", res)
		}
		if len(db.tenants) != 0 || len(db.stores) != 0 {
			t.Error("expected no tenant or store to be created")
		}
	})

	t.Run("should be a no-op when called twice", func(t *testing.T) {
		db := newMemDB()
		uc := usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), newTestLogger())
		user, _ := model.NewUser("", "Omar", "omar@example.com", "hash")

		if _, err := uc.ProvisionFor(ctx, user); err != nil {
			t.Fatalf("first call: %v", err)
		}
		res, err := uc.ProvisionFor(ctx, user)
		if err != nil || res != nil {
			t.Fatalf("expected silent no-op, got %+v, %v", res, err)
		}
		if len(db.tenants) != 1 {
			t.Errorf("expected 1 tenant, got %d", len(db.tenants))
		}
	})

	t.Run("should roll back when the store cannot be saved", func(t *testing.T) {
		db := newMemDB()
		db.FailOn["Stores.Save"] = errors.New("disk full")
		uc := usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), newTestLogger())
		user, _ := model.NewUser("", "Pia", "pia@example.com", "hash")

		_, err := uc.ProvisionFor(ctx, user)
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
		if len(db.tenants) != 0 || len(db.access) != 0 {
			t.Error("expected tenant and grant to be rolled back")
		}
	})

	t.Run("should reject an empty user", func(t *testing.T) {
		db := newMemDB()
		uc := usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), newTestLogger())
		if _, err := uc.ProvisionFor(ctx, &model.User{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRegistrationUseCase_ProvisionForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("should resolve the user before provisioning", func(t *testing.T) {
		db := newMemDB()
		uc := usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), newTestLogger())
		user, _ := model.NewUser("", "Rina", "rina@example.com", "hash")
		_ = (&memUserRepo{db}).Save(ctx, nil, user)

		res, err := uc.ProvisionForUser(ctx, user.ID)

		if err != nil || res == nil {
			t.Fatalf("expected a workspace, got %+v, %v", res, err)
		}
	})

	t.Run("should report unknown users", func(t *testing.T) {
		db := newMemDB()
		uc := usecase.NewRegistrationUseCase(db.repos(), newMemTxManager(db), newTestLogger())

		_, err := uc.ProvisionForUser(ctx, "missing")

		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
