package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

var _ repository.LandingSubscriptionRepository = (*landingRepo)(nil)

type landingRepo struct {
	pool *pgxpool.Pool
}

func NewLandingRepo(pool *pgxpool.Pool) *landingRepo {
	return &landingRepo{pool: pool}
}

func (r *landingRepo) Save(ctx context.Context, tx repository.Tx, l *model.LandingSubscription) error {
	const q = `
INSERT INTO landing_subscriptions (
  id, email, name, business_name, phone, plan_id, billing_cycle, tenant_id, user_id,
  is_upgrade, is_downgrade, previous_plan_id, status, subscription_id,
  provisioned_user_id, provisioned_store_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, business_name=$4, phone=$5, plan_id=$6, billing_cycle=$7,
  tenant_id=$8, user_id=$9, is_upgrade=$10, is_downgrade=$11, previous_plan_id=$12,
  status=$13, subscription_id=$14, provisioned_user_id=$15, provisioned_store_id=$16,
  updated_at=$18;`
	_, err := execSQL(ctx, r.pool, tx, q,
		l.ID, l.Email, l.Name, l.BusinessName, l.Phone, l.PlanID, l.BillingCycle, l.TenantID, l.UserID,
		l.IsUpgrade, l.IsDowngrade, l.PreviousPlanID, l.Status, l.SubscriptionID,
		l.ProvisionedUserID, l.ProvisionedStoreID, l.CreatedAt, l.UpdatedAt)
	return mapWriteErr("save landing subscription", err)
}

func (r *landingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.LandingSubscription, error) {
	q := `
SELECT id, email, name, business_name, phone, plan_id, billing_cycle, tenant_id, user_id,
       is_upgrade, is_downgrade, previous_plan_id, status, subscription_id,
       provisioned_user_id, provisioned_store_id, created_at, updated_at
  FROM landing_subscriptions
 WHERE id=$1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	var l model.LandingSubscription
	err := pickRow(ctx, r.pool, tx, q, id).Scan(
		&l.ID, &l.Email, &l.Name, &l.BusinessName, &l.Phone, &l.PlanID, &l.BillingCycle, &l.TenantID, &l.UserID,
		&l.IsUpgrade, &l.IsDowngrade, &l.PreviousPlanID, &l.Status, &l.SubscriptionID,
		&l.ProvisionedUserID, &l.ProvisionedStoreID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapReadErr("find landing subscription", err)
	}
	return &l, nil
}
