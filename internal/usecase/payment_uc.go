// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/domain/ports/repository"
	"pos-provisioning/internal/infra/logging"
	"pos-provisioning/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentConfirmation is the gateway's statement about one payment.
type PaymentConfirmation struct {
	Reference     string
	TransactionID string
	Amount        int64
	PaidAt        time.Time
}

type PaymentUseCase interface {
	// MarkPaid records a successful payment and queues provisioning. Repeated
	// confirmations of the same payment queue provisioning again, which is safe.
	MarkPaid(ctx context.Context, c PaymentConfirmation) (*model.SubscriptionPayment, error)
	// MarkFailed records a gateway failure. Paid payments are never downgraded.
	MarkFailed(ctx context.Context, reference string) (*model.SubscriptionPayment, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	queue    adapter.ProvisioningQueue
	log      *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, queue adapter.ProvisioningQueue, logger *zerolog.Logger) *paymentUC {
	compLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{payments: payments, queue: queue, log: &compLog}
}

func (u *paymentUC) MarkPaid(ctx context.Context, c PaymentConfirmation) (*model.SubscriptionPayment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.MarkPaid")()

	p, err := u.payments.FindByReference(ctx, nil, c.Reference)
	if err != nil {
		return nil, err
	}
	if c.Amount != p.Amount {
		metrics.IncPayment("amount_mismatch")
		return p, fmt.Errorf("%w: got %d, expected %d", domain.ErrAmountMismatch, c.Amount, p.Amount)
	}
	paidAt := c.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	switch p.Status {
	case model.PaymentStatusPending:
		changed, err := u.payments.MarkPaidIfPending(ctx, nil, p.ID, c.TransactionID, paidAt)
		if err != nil {
			return nil, err
		}
		if changed {
			p.Status = model.PaymentStatusPaid
			p.GatewayTransactionID = &c.TransactionID
			p.PaidAt = &paidAt
			p.UpdatedAt = paidAt
			metrics.IncPayment("paid")
			metrics.AddPaymentRevenue(p.Currency, p.Amount)
		} else if p, err = u.payments.FindByID(ctx, nil, p.ID); err != nil {
			return nil, err
		}
	case model.PaymentStatusPaid:
		metrics.IncPayment("duplicate")
	default:
		return p, fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidTransition, p.ID, p.Status)
	}
	if !p.IsPaid() {
		return p, fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidTransition, p.ID, p.Status)
	}

	if p.SubscriptionID == nil {
		job := adapter.ProvisioningJob{ID: ulid.Make().String(), LandingID: p.LandingSubscriptionID, PaymentID: p.ID}
		if err := u.queue.Enqueue(ctx, job); err != nil {
			return p, fmt.Errorf("enqueue provisioning: %w", err)
		}
		logging.With(ctx, u.log).Info().
			Str("payment_id", p.ID).
			Str("job_id", job.ID).
			Msg("payment confirmed, provisioning queued")
	}
	return p, nil
}

func (u *paymentUC) MarkFailed(ctx context.Context, reference string) (*model.SubscriptionPayment, error) {
	p, err := u.payments.FindByReference(ctx, nil, reference)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case model.PaymentStatusFailed:
		return p, nil
	case model.PaymentStatusPaid:
		return p, fmt.Errorf("%w: payment %s already paid", domain.ErrInvalidTransition, p.ID)
	}
	if err := u.payments.UpdateStatus(ctx, nil, p.ID, model.PaymentStatusFailed); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatusFailed
	p.UpdatedAt = time.Now()
	metrics.IncPayment("failed")
	return p, nil
}
