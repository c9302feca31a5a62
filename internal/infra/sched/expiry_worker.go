package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pos-provisioning/internal/infra/metrics"
	"pos-provisioning/internal/usecase"
)

// ExpiryWorker periodically finishes expired subscriptions via the use case
// and refreshes the subscription gauges.
type ExpiryWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	n, err := w.subUC.FinishExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		w.log.Info().Int("count", n).Msg("expired subscriptions finished")
	}
	counts, err := w.subUC.CountByStatus(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("count subscriptions failed")
		return
	}
	metrics.SetSubscriptionsTotal(counts)
}
