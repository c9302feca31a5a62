package repository

import (
	"context"

	"pos-provisioning/internal/domain/model"
)

// -----------------------------
// Tenants
// -----------------------------

type TenantRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Tenant) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Tenant, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Tenant, error)
}

// TenantAccessRepository stores per-tenant role grants.
type TenantAccessRepository interface {
	// Upsert creates the grant or updates the role of the existing (tenant,user) grant.
	Upsert(ctx context.Context, tx Tx, a *model.TenantAccess) error
	ListByUser(ctx context.Context, tx Tx, userID string) ([]model.TenantAccess, error)
	CountByUser(ctx context.Context, tx Tx, userID string) (int, error)
}
