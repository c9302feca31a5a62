// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-provisioning/internal/config"
	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/infra/api"
	pg "pos-provisioning/internal/infra/db/postgres"
	"pos-provisioning/internal/infra/email"
	"pos-provisioning/internal/infra/logging"
	"pos-provisioning/internal/infra/metrics"
	red "pos-provisioning/internal/infra/redis"
	"pos-provisioning/internal/infra/sched"
	"pos-provisioning/internal/infra/security"
	"pos-provisioning/internal/infra/worker"
	"pos-provisioning/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	repos := usecase.Repositories{
		Tenants:       pg.NewTenantRepo(pool),
		Access:        pg.NewTenantAccessRepo(pool),
		Users:         pg.NewPostgresUserRepo(pool),
		Stores:        pg.NewStoreRepo(pool),
		Assignments:   pg.NewStoreAssignmentRepo(pool),
		Plans:         pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL, logger),
		Subscriptions: pg.NewSubscriptionRepo(pool),
		Usage:         pg.NewUsageRepo(pool),
		Landing:       pg.NewLandingRepo(pool),
		Payments:      pg.NewPostgresPaymentRepo(pool),
	}
	tm := pg.NewTxManager(pool)

	// ---- Adapters ----
	creds := security.NewBcryptIssuer(cfg.Security.BcryptCost, cfg.Security.TempPasswordLength)
	var notifier adapter.WelcomeNotifier
	if cfg.Mail.Disabled {
		logger.Warn().Msg("mail disabled, welcome emails are only logged")
		notifier = email.NewLogNotifier(logger)
	} else {
		smtp, err := email.NewSMTPNotifier(cfg.Mail, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("mail")
		}
		notifier = smtp
	}

	// ---- Use cases ----
	provisioningUC := usecase.NewProvisioningUseCase(repos, tm, creds, notifier, logger)
	registrationUC := usecase.NewRegistrationUseCase(repos, tm, logger)
	checkoutUC := usecase.NewCheckoutUseCase(repos, cfg.Checkout.Currency, cfg.Checkout.YearlyDiscountMonths, logger)
	subscriptionUC := usecase.NewSubscriptionUseCase(repos, logger)
	entitlementUC := usecase.NewEntitlementUseCase(repos, tm, logger)
	planUC := usecase.NewPlanUseCase(repos.Plans)

	// ---- Provisioning jobs ----
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	workers := worker.NewPool(cfg.Provisioning.Workers, cfg.Provisioning.QueueSize, logger)
	workers.Start(workerCtx)
	runner := worker.NewProvisioningRunner(workers, provisioningUC, cfg.Provisioning.RetryMaxElapsed, logger)
	paymentUC := usecase.NewPaymentUseCase(repos.Payments, runner, logger)

	// ---- Background loops ----
	reconciler := sched.NewProvisioningReconciler(
		repos.Payments, runner,
		cfg.Provisioning.ReconcileInterval, cfg.Provisioning.StaleAfter,
		cfg.Provisioning.MaxFailures, cfg.Provisioning.BatchSize,
		logger,
	)
	go reconciler.Start(ctx)
	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subscriptionUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	// ---- HTTP ----
	srv := api.NewServer(api.Deps{
		Checkout:      checkoutUC,
		Payments:      paymentUC,
		Subscriptions: subscriptionUC,
		Entitlements:  entitlementUC,
		Provisioner:   provisioningUC,
		Registration:  registrationUC,
		Plans:         planUC,
		Limiter:       red.NewRateLimiter(redisClient),
		Guard:         red.NewDeliveryGuard(redisClient, cfg.Webhook.DedupeTTL),
		Auth:          api.NewAuthManager(cfg.Admin),
		WebhookSecret: cfg.Webhook.Secret,
		Timeout:       cfg.HTTP.RequestTimeout,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancelWorkers()
	workers.Stop()
	logger.Info().Msg("bye")
}
