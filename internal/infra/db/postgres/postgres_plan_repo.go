package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, slug, name, price, sort_order, duration_days, is_active, created_at`

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (id, slug, name, price, sort_order, duration_days, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE
  SET slug          = EXCLUDED.slug,
      name          = EXCLUDED.name,
      price         = EXCLUDED.price,
      sort_order    = EXCLUDED.sort_order,
      duration_days = EXCLUDED.duration_days,
      is_active     = EXCLUDED.is_active;`
	_, err := execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Slug, plan.Name, plan.Price, plan.SortOrder, plan.DurationDays, plan.IsActive, plan.CreatedAt,
	)
	return mapWriteErr("save plan", err)
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *PostgresPlanRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE slug=$1;`
	return r.queryOne(ctx, tx, q, slug)
}

func (r *PostgresPlanRepo) queryOne(ctx context.Context, tx repository.Tx, q string, arg string) (*model.Plan, error) {
	var p model.Plan
	err := pickRow(ctx, r.pool, tx, q, arg).
		Scan(&p.ID, &p.Slug, &p.Name, &p.Price, &p.SortOrder, &p.DurationDays, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, mapReadErr("find plan", err)
	}
	return &p, nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans ORDER BY sort_order ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapWriteErr("list plans", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Price, &p.SortOrder, &p.DurationDays, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *PostgresPlanRepo) ListFeatures(ctx context.Context, tx repository.Tx, planID string) ([]model.PlanFeature, error) {
	const q = `
SELECT plan_id, feature_code, limit_value, is_enabled
  FROM plan_features
 WHERE plan_id=$1
 ORDER BY feature_code ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, planID)
	if err != nil {
		return nil, mapWriteErr("list plan features", err)
	}
	defer rows.Close()
	var out []model.PlanFeature
	for rows.Next() {
		var f model.PlanFeature
		if err := rows.Scan(&f.PlanID, &f.FeatureCode, &f.LimitValue, &f.IsEnabled); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// SaveFeatures replaces the feature table. Without an outer transaction the
// delete and inserts run in a local one so readers never see a half table.
func (r *PostgresPlanRepo) SaveFeatures(ctx context.Context, tx repository.Tx, planID string, features []model.PlanFeature) error {
	if !inTx(tx) {
		return NewTxManager(r.pool).WithTx(ctx, pgxTxDefault, func(ctx context.Context, tx repository.Tx) error {
			return r.SaveFeatures(ctx, tx, planID, features)
		})
	}
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM plan_features WHERE plan_id=$1;`, planID); err != nil {
		return mapWriteErr("clear plan features", err)
	}
	const q = `
INSERT INTO plan_features (plan_id, feature_code, limit_value, is_enabled)
VALUES ($1,$2,$3,$4);`
	for _, f := range features {
		if _, err := execSQL(ctx, r.pool, tx, q, planID, f.FeatureCode, f.LimitValue, f.IsEnabled); err != nil {
			return mapWriteErr("insert plan feature", err)
		}
	}
	return nil
}
