package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/domain/ports/usecase"
	"pos-provisioning/internal/infra/logging"
	"pos-provisioning/internal/infra/metrics"
)

var _ adapter.ProvisioningQueue = (*ProvisioningRunner)(nil)

// ProvisioningRunner executes provisioning jobs on the pool. Persistence
// failures are retried with exponential backoff; every other failure is final
// for this attempt and left to the reconciler or an operator.
type ProvisioningRunner struct {
	pool        *Pool
	provisioner usecase.Provisioner
	initial     time.Duration
	maxElapsed  time.Duration
	// landing id -> job id of the job currently queued or running
	inflight sync.Map
	log      *zerolog.Logger
}

func NewProvisioningRunner(pool *Pool, provisioner usecase.Provisioner, maxElapsed time.Duration, logger *zerolog.Logger) *ProvisioningRunner {
	if maxElapsed <= 0 {
		maxElapsed = 2 * time.Minute
	}
	l := logger.With().Str("component", "provisioning_runner").Logger()
	return &ProvisioningRunner{
		pool:        pool,
		provisioner: provisioner,
		initial:     500 * time.Millisecond,
		maxElapsed:  maxElapsed,
		log:         &l,
	}
}

// Enqueue hands the job to the pool. A job for a landing that is already
// queued or running is dropped silently.
func (r *ProvisioningRunner) Enqueue(ctx context.Context, job adapter.ProvisioningJob) error {
	if job.LandingID == "" || job.PaymentID == "" {
		return domain.ErrInvalidArgument
	}
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}
	if running, loaded := r.inflight.LoadOrStore(job.LandingID, job.ID); loaded {
		metrics.IncProvisioningJob("deduplicated")
		logging.With(ctx, r.log).Debug().
			Str("job_id", job.ID).
			Str("running_job_id", running.(string)).
			Str("landing_id", job.LandingID).
			Msg("provisioning already in flight")
		return nil
	}

	err := r.pool.Submit(func(ctx context.Context) error {
		defer r.inflight.Delete(job.LandingID)
		return r.run(ctx, job)
	})
	if err != nil {
		r.inflight.Delete(job.LandingID)
		metrics.IncProvisioningJob("dropped")
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	metrics.IncProvisioningJob("enqueued")
	return nil
}

func (r *ProvisioningRunner) run(ctx context.Context, job adapter.ProvisioningJob) error {
	ctx = logging.WithJobID(logging.WithLandingID(ctx, job.LandingID), job.ID)
	log := logging.With(ctx, r.log)
	defer logging.TraceDuration(r.log, "ProvisioningRunner.run")()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxElapsedTime = r.maxElapsed

	attempts := 0
	op := func() error {
		attempts++
		res, err := r.provisioner.ProvisionFromPaidLandingSubscription(ctx, job.LandingID, job.PaymentID)
		if err == nil {
			log.Info().
				Str("subscription_id", res.Subscription.ID).
				Bool("already_provisioned", res.AlreadyProvisioned).
				Int("attempt", attempts).
				Msg("provisioning job completed")
			return nil
		}
		if errors.Is(err, domain.ErrPersistence) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", next).Msg("provisioning attempt failed, retrying")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	metrics.ObserveJobAttempts(attempts)
	if err != nil {
		metrics.IncProvisioningJob("failed")
		log.Error().Err(err).Int("attempts", attempts).Msg("provisioning job failed")
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	metrics.IncProvisioningJob("completed")
	return nil
}
