package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

var (
	_ repository.StoreRepository           = (*storeRepo)(nil)
	_ repository.StoreAssignmentRepository = (*storeAssignmentRepo)(nil)
)

type storeRepo struct {
	pool *pgxpool.Pool
}

func NewStoreRepo(pool *pgxpool.Pool) *storeRepo {
	return &storeRepo{pool: pool}
}

func (r *storeRepo) Save(ctx context.Context, tx repository.Tx, s *model.Store) error {
	const q = `
INSERT INTO stores (id, tenant_id, name, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$3, status=$4, updated_at=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.TenantID, s.Name, s.Status, s.CreatedAt, s.UpdatedAt)
	return mapWriteErr("save store", err)
}

func (r *storeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Store, error) {
	const q = `
SELECT id, tenant_id, name, status, created_at, updated_at
  FROM stores WHERE id=$1;`
	var s model.Store
	err := pickRow(ctx, r.pool, tx, q, id).
		Scan(&s.ID, &s.TenantID, &s.Name, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapReadErr("find store", err)
	}
	return &s, nil
}

func (r *storeRepo) ListByTenant(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.Store, error) {
	const q = `
SELECT id, tenant_id, name, status, created_at, updated_at
  FROM stores
 WHERE tenant_id=$1
 ORDER BY created_at ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, tenantID)
	if err != nil {
		return nil, mapWriteErr("list stores", err)
	}
	defer rows.Close()
	var out []*model.Store
	for rows.Next() {
		var s model.Store
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// -----------------------------
// Store assignments
// -----------------------------

type storeAssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewStoreAssignmentRepo(pool *pgxpool.Pool) *storeAssignmentRepo {
	return &storeAssignmentRepo{pool: pool}
}

func (r *storeAssignmentRepo) Upsert(ctx context.Context, tx repository.Tx, a *model.StoreAssignment) error {
	if !a.Role.Valid() {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO store_user_assignments (store_id, user_id, role, is_primary, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (store_id, user_id) DO UPDATE SET
  role=EXCLUDED.role, is_primary=EXCLUDED.is_primary, updated_at=EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, a.StoreID, a.UserID, a.Role, a.IsPrimary, a.CreatedAt, a.UpdatedAt)
	return mapWriteErr("upsert store assignment", err)
}

func (r *storeAssignmentRepo) Find(ctx context.Context, tx repository.Tx, storeID, userID string) (*model.StoreAssignment, error) {
	const q = `
SELECT store_id, user_id, role, is_primary, created_at, updated_at
  FROM store_user_assignments WHERE store_id=$1 AND user_id=$2;`
	return r.queryOne(ctx, tx, q, storeID, userID)
}

func (r *storeAssignmentRepo) FindPrimaryByUser(ctx context.Context, tx repository.Tx, userID string) (*model.StoreAssignment, error) {
	const q = `
SELECT store_id, user_id, role, is_primary, created_at, updated_at
  FROM store_user_assignments WHERE user_id=$1 AND is_primary;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *storeAssignmentRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...any) (*model.StoreAssignment, error) {
	var a model.StoreAssignment
	err := pickRow(ctx, r.pool, tx, q, args...).
		Scan(&a.StoreID, &a.UserID, &a.Role, &a.IsPrimary, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapReadErr("find store assignment", err)
	}
	return &a, nil
}
