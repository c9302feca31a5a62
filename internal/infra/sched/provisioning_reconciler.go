package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/domain/ports/repository"
)

// ProvisioningReconciler periodically scans for paid payments that never got
// a subscription and queues provisioning for them again. It picks up lost
// queue entries and jobs that ran out of retries.
type ProvisioningReconciler struct {
	payments    repository.PaymentRepository
	queue       adapter.ProvisioningQueue
	interval    time.Duration // how often to scan
	staleAfter  time.Duration // how long a paid payment may stay unprovisioned
	maxFailures int           // payments rejected this often are left to an operator
	batch       int
	now         func() time.Time
	log         *zerolog.Logger
}

func NewProvisioningReconciler(payments repository.PaymentRepository, queue adapter.ProvisioningQueue, interval, staleAfter time.Duration, maxFailures, batch int, logger *zerolog.Logger) *ProvisioningReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if batch <= 0 {
		batch = 50
	}
	l := logger.With().Str("component", "ProvisioningReconciler").Logger()
	return &ProvisioningReconciler{
		payments:    payments,
		queue:       queue,
		interval:    interval,
		staleAfter:  staleAfter,
		maxFailures: maxFailures,
		batch:       batch,
		now:         time.Now,
		log:         &l,
	}
}

func (w *ProvisioningReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one scan and reports how many jobs were queued.
func (w *ProvisioningReconciler) Tick(ctx context.Context) int {
	cutoff := w.now().Add(-w.staleAfter)
	stale, err := w.payments.ListPaidUnprovisioned(ctx, nil, cutoff, w.maxFailures, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list unprovisioned payments failed")
		return 0
	}
	queued := 0
	for _, p := range stale {
		job := adapter.ProvisioningJob{LandingID: p.LandingSubscriptionID, PaymentID: p.ID}
		if err := w.queue.Enqueue(ctx, job); err != nil {
			w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("re-enqueue failed")
			continue
		}
		queued++
	}
	if queued > 0 {
		w.log.Info().Int("count", queued).Msg("stale paid payments re-queued")
	}
	return queued
}
