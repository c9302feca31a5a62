// File: internal/usecase/registration_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
	"pos-provisioning/internal/infra/logging"
	"pos-provisioning/internal/infra/metrics"
)

var _ RegistrationUseCase = (*registrationUC)(nil)

// RegistrationUseCase gives self-registered users a workspace of their own.
type RegistrationUseCase interface {
	// ProvisionFor creates a tenant, a default store and owner grants for a
	// user without any tenant access. Users that already belong somewhere are
	// left untouched and nil is returned for the result.
	ProvisionFor(ctx context.Context, user *model.User) (*RegistrationResult, error)
	// ProvisionForUser is ProvisionFor for a user known only by ID.
	ProvisionForUser(ctx context.Context, userID string) (*RegistrationResult, error)
}

type RegistrationResult struct {
	Tenant     *model.Tenant
	Store      *model.Store
	Assignment *model.StoreAssignment
}

type registrationUC struct {
	repos Repositories
	tm    repository.TransactionManager
	log   *zerolog.Logger
	now   func() time.Time
}

func NewRegistrationUseCase(repos Repositories, tm repository.TransactionManager, logger *zerolog.Logger) *registrationUC {
	compLog := logger.With().Str("component", "RegistrationUC").Logger()
	return &registrationUC{repos: repos, tm: tm, log: &compLog, now: time.Now}
}

func (u *registrationUC) ProvisionForUser(ctx context.Context, userID string) (*RegistrationResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	user, err := u.repos.Users.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return u.ProvisionFor(ctx, user)
}

func (u *registrationUC) ProvisionFor(ctx context.Context, user *model.User) (*RegistrationResult, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.ProvisionFor")()
	if user.IsZero() {
		return nil, domain.ErrInvalidArgument
	}

	var res *RegistrationResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		n, err := u.repos.Access.CountByUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		now := u.now()
		tenant, err := model.NewTenant(model.DefaultBusinessName(user.Name), user.Email)
		if err != nil {
			return err
		}
		if err := u.repos.Tenants.Save(ctx, tx, tenant); err != nil {
			return fmt.Errorf("save tenant: %w", err)
		}
		if err := grantTenantAccess(ctx, tx, u.repos, tenant.ID, user.ID, model.RoleOwner, now); err != nil {
			return fmt.Errorf("grant access: %w", err)
		}
		store, _, err := resolveStore(ctx, tx, u.repos, tenant)
		if err != nil {
			return fmt.Errorf("resolve store: %w", err)
		}
		a, err := upsertOwnerAssignment(ctx, tx, u.repos, store, user, now)
		if err != nil {
			return fmt.Errorf("assign store: %w", err)
		}
		res = &RegistrationResult{Tenant: tenant, Store: store, Assignment: a}
		return nil
	})
	if err != nil {
		metrics.IncRegistration("failed")
		return nil, classifyProvisionErr(err)
	}
	if res == nil {
		metrics.IncRegistration("skipped")
	} else {
		metrics.IncRegistration("created")
		logging.With(ctx, u.log).Info().
			Str("user_id", user.ID).
			Str("tenant_id", res.Tenant.ID).
			Msg("workspace created for registered user")
	}
	return res, nil
}
