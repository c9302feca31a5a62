package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, tenant_id, plan_id, status, billing_cycle, starts_at, ends_at, metadata, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	meta, err := json.Marshal(s.Change)
	if err != nil {
		return fmt.Errorf("%w: encode subscription metadata: %w", domain.ErrInvalidArgument, err)
	}
	const q = `
INSERT INTO subscriptions (
  id, tenant_id, plan_id, status, billing_cycle, starts_at, ends_at, metadata, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, status=$4, billing_cycle=$5, starts_at=$6, ends_at=$7, metadata=$8, updated_at=$10;`

	_, err = execSQL(ctx, r.pool, tx, q,
		s.ID, s.TenantID, s.PlanID, s.Status, s.BillingCycle, s.StartsAt, s.EndsAt, meta, s.CreatedAt, s.UpdatedAt)
	return mapWriteErr("save subscription", err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	return r.queryOne(ctx, tx, q, id)
}

func (r *subscriptionRepo) FindCurrentByTenant(ctx context.Context, tx repository.Tx, tenantID string) (*model.Subscription, error) {
	q := `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE tenant_id=$1
 ORDER BY (status='active') DESC, updated_at DESC
 LIMIT 1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	return r.queryOne(ctx, tx, q, tenantID)
}

func (r *subscriptionRepo) CountActiveByTenant(ctx context.Context, tx repository.Tx, tenantID string) (int, error) {
	const q = `SELECT COUNT(*) FROM subscriptions WHERE tenant_id=$1 AND status='active';`
	var n int
	if err := pickRow(ctx, r.pool, tx, q, tenantID).Scan(&n); err != nil {
		return 0, mapWriteErr("count active subscriptions", err)
	}
	return n, nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapWriteErr("count subscriptions by status", err)
	}
	defer rows.Close()
	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status model.SubscriptionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE subscriptions
   SET status='expired', updated_at=$1
 WHERE status='active' AND ends_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, mapWriteErr("expire subscriptions", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...any) (*model.Subscription, error) {
	s, err := scanSubscription(pickRow(ctx, r.pool, tx, q, args...))
	if err != nil {
		return nil, mapReadErr("find subscription", err)
	}
	return s, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	var meta []byte
	if err := row.Scan(&s.ID, &s.TenantID, &s.PlanID, &s.Status, &s.BillingCycle,
		&s.StartsAt, &s.EndsAt, &meta, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &s.Change); err != nil {
			return nil, fmt.Errorf("%w: subscription %s metadata: %w", domain.ErrReadDatabaseRow, s.ID, err)
		}
	} else {
		s.Change = model.NewChange()
	}
	return &s, nil
}

// -----------------------------
// Usage counters
// -----------------------------

var _ repository.UsageRepository = (*usageRepo)(nil)

type usageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *usageRepo {
	return &usageRepo{pool: pool}
}

const usageColumns = `subscription_id, feature_type, current_usage, annual_quota, soft_cap_triggered, reset_at, updated_at`

func (r *usageRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionUsage, error) {
	q := `SELECT ` + usageColumns + ` FROM subscription_usage WHERE subscription_id=$1 ORDER BY feature_type ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, mapWriteErr("list usage", err)
	}
	defer rows.Close()
	var out []*model.SubscriptionUsage
	for rows.Next() {
		u, err := scanUsage(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// Replace runs inside a local transaction when the caller did not pass one.
func (r *usageRepo) Replace(ctx context.Context, tx repository.Tx, subscriptionID string, usage []*model.SubscriptionUsage) error {
	if !inTx(tx) {
		return NewTxManager(r.pool).WithTx(ctx, pgxTxDefault, func(ctx context.Context, tx repository.Tx) error {
			return r.Replace(ctx, tx, subscriptionID, usage)
		})
	}
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM subscription_usage WHERE subscription_id=$1;`, subscriptionID); err != nil {
		return mapWriteErr("clear usage", err)
	}
	const q = `
INSERT INTO subscription_usage (` + usageColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	for _, u := range usage {
		_, err := execSQL(ctx, r.pool, tx, q,
			subscriptionID, u.FeatureType, u.CurrentUsage, u.AnnualQuota, u.SoftCapTriggered, u.ResetAt, u.UpdatedAt)
		if err != nil {
			return mapWriteErr("insert usage", err)
		}
	}
	return nil
}

func (r *usageRepo) Increment(ctx context.Context, tx repository.Tx, subscriptionID, featureType string, delta int64) (*model.SubscriptionUsage, error) {
	const q = `
UPDATE subscription_usage
   SET current_usage = current_usage + $3, updated_at = NOW()
 WHERE subscription_id=$1 AND feature_type=$2
RETURNING ` + usageColumns + `;`
	u, err := scanUsage(pickRow(ctx, r.pool, tx, q, subscriptionID, featureType, delta))
	if err != nil {
		return nil, mapReadErr("increment usage", err)
	}
	return u, nil
}

func (r *usageRepo) SetSoftCap(ctx context.Context, tx repository.Tx, subscriptionID, featureType string, triggered bool) error {
	const q = `
UPDATE subscription_usage
   SET soft_cap_triggered=$3, updated_at=NOW()
 WHERE subscription_id=$1 AND feature_type=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, subscriptionID, featureType, triggered)
	if err != nil {
		return mapWriteErr("set soft cap", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUsage(row pgx.Row) (*model.SubscriptionUsage, error) {
	var u model.SubscriptionUsage
	if err := row.Scan(&u.SubscriptionID, &u.FeatureType, &u.CurrentUsage, &u.AnnualQuota,
		&u.SoftCapTriggered, &u.ResetAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
