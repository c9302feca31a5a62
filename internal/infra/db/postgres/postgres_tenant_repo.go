package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

var (
	_ repository.TenantRepository       = (*tenantRepo)(nil)
	_ repository.TenantAccessRepository = (*tenantAccessRepo)(nil)
)

type tenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *tenantRepo {
	return &tenantRepo{pool: pool}
}

func (r *tenantRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tenant) error {
	const q = `
INSERT INTO tenants (id, name, email, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$2, email=$3, status=$4, updated_at=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Name, t.Email, t.Status, t.CreatedAt, t.UpdatedAt)
	return mapWriteErr("save tenant", err)
}

func (r *tenantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tenant, error) {
	const q = `
SELECT id, name, email, status, created_at, updated_at
  FROM tenants WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *tenantRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Tenant, error) {
	const q = `
SELECT id, name, email, status, created_at, updated_at
  FROM tenants WHERE email=$1;`
	return r.queryOne(ctx, tx, q, model.NormalizeEmail(email))
}

func (r *tenantRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...any) (*model.Tenant, error) {
	var t model.Tenant
	err := pickRow(ctx, r.pool, tx, q, args...).
		Scan(&t.ID, &t.Name, &t.Email, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapReadErr("find tenant", err)
	}
	return &t, nil
}

// -----------------------------
// Tenant access
// -----------------------------

type tenantAccessRepo struct {
	pool *pgxpool.Pool
}

func NewTenantAccessRepo(pool *pgxpool.Pool) *tenantAccessRepo {
	return &tenantAccessRepo{pool: pool}
}

func (r *tenantAccessRepo) Upsert(ctx context.Context, tx repository.Tx, a *model.TenantAccess) error {
	if !a.Role.Valid() {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO tenant_user_access (tenant_id, user_id, role, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (tenant_id, user_id) DO UPDATE SET role=EXCLUDED.role;`
	_, err := execSQL(ctx, r.pool, tx, q, a.TenantID, a.UserID, a.Role, a.CreatedAt)
	return mapWriteErr("upsert tenant access", err)
}

func (r *tenantAccessRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]model.TenantAccess, error) {
	const q = `
SELECT tenant_id, user_id, role, created_at
  FROM tenant_user_access
 WHERE user_id=$1
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapWriteErr("list tenant access", err)
	}
	defer rows.Close()
	var out []model.TenantAccess
	for rows.Next() {
		var a model.TenantAccess
		if err := rows.Scan(&a.TenantID, &a.UserID, &a.Role, &a.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *tenantAccessRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	q := `SELECT COUNT(*) FROM tenant_user_access WHERE user_id=$1;`
	var n int
	if err := pickRow(ctx, r.pool, tx, q, userID).Scan(&n); err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, mapWriteErr("count tenant access", err)
	}
	return n, nil
}
