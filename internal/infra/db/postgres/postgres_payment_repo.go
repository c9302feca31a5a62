package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PostgresPaymentRepo)(nil)

type PostgresPaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentRepo(pool *pgxpool.Pool) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{pool: pool}
}

const paymentColumns = `id, landing_subscription_id, amount, currency, status, gateway_reference,
       gateway_transaction_id, paid_at, subscription_id, provisioning_failures, provisioning_error,
       created_at, updated_at`

func (r *PostgresPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	const q = `
INSERT INTO subscription_payments (
  id, landing_subscription_id, amount, currency, status, gateway_reference,
  gateway_transaction_id, paid_at, subscription_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  amount=$3, currency=$4, status=$5, gateway_transaction_id=$7, paid_at=$8,
  subscription_id=$9, updated_at=$11;`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.LandingSubscriptionID, p.Amount, p.Currency, p.Status, p.GatewayReference,
		p.GatewayTransactionID, p.PaidAt, p.SubscriptionID, p.CreatedAt, p.UpdatedAt)
	return mapWriteErr("save payment", err)
}

func (r *PostgresPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPayment, error) {
	return r.queryOne(ctx, tx, `SELECT `+paymentColumns+` FROM subscription_payments WHERE id=$1;`, id)
}

func (r *PostgresPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.SubscriptionPayment, error) {
	return r.queryOne(ctx, tx, `SELECT `+paymentColumns+` FROM subscription_payments WHERE gateway_reference=$1;`, reference)
}

// MarkPaidIfPending is a conditional update so concurrent webhook deliveries
// flip the row exactly once.
func (r *PostgresPaymentRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, transactionID string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE subscription_payments
   SET status='paid', gateway_transaction_id=$2, paid_at=$3, updated_at=NOW()
 WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, transactionID, paidAt)
	if err != nil {
		return false, mapWriteErr("mark payment paid", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error {
	const q = `UPDATE subscription_payments SET status=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		return mapWriteErr("update payment status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresPaymentRepo) LinkSubscription(ctx context.Context, tx repository.Tx, id, subscriptionID string) error {
	const q = `UPDATE subscription_payments SET subscription_id=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, subscriptionID)
	if err != nil {
		return mapWriteErr("link payment subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresPaymentRepo) RecordProvisioningFailure(ctx context.Context, tx repository.Tx, id, reason string) error {
	const q = `
UPDATE subscription_payments
   SET provisioning_failures = provisioning_failures + 1, provisioning_error=$2, updated_at=NOW()
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, reason)
	if err != nil {
		return mapWriteErr("record provisioning failure", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresPaymentRepo) ListPaidUnprovisioned(ctx context.Context, tx repository.Tx, olderThan time.Time, maxFailures, limit int) ([]*model.SubscriptionPayment, error) {
	q := `
SELECT ` + paymentColumns + `
  FROM subscription_payments
 WHERE status='paid' AND subscription_id IS NULL AND paid_at < $1 AND provisioning_failures < $2
 ORDER BY paid_at ASC
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, maxFailures, limit)
	if err != nil {
		return nil, mapWriteErr("list unprovisioned payments", err)
	}
	defer rows.Close()
	var out []*model.SubscriptionPayment
	for rows.Next() {
		var p model.SubscriptionPayment
		if err := rows.Scan(paymentDest(&p)...); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *PostgresPaymentRepo) queryOne(ctx context.Context, tx repository.Tx, q string, arg string) (*model.SubscriptionPayment, error) {
	var p model.SubscriptionPayment
	err := pickRow(ctx, r.pool, tx, q, arg).Scan(paymentDest(&p)...)
	if err != nil {
		return nil, mapReadErr("find payment", err)
	}
	return &p, nil
}

// paymentDest lists scan targets in paymentColumns order.
func paymentDest(p *model.SubscriptionPayment) []interface{} {
	return []interface{}{
		&p.ID, &p.LandingSubscriptionID, &p.Amount, &p.Currency, &p.Status, &p.GatewayReference,
		&p.GatewayTransactionID, &p.PaidAt, &p.SubscriptionID, &p.ProvisioningFailures, &p.ProvisioningError,
		&p.CreatedAt, &p.UpdatedAt,
	}
}
