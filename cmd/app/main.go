// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mpesa-subscription-shop/internal/config"
	"mpesa-subscription-shop/internal/domain/ports/adapter"
	"mpesa-subscription-shop/internal/domain/ports/repository"
	"mpesa-subscription-shop/internal/infra/adapters/notify"
	payAdapters "mpesa-subscription-shop/internal/infra/adapters/payment"
	"mpesa-subscription-shop/internal/infra/catalog"
	pg "mpesa-subscription-shop/internal/infra/db/postgres"
	"mpesa-subscription-shop/internal/infra/logging"
	"mpesa-subscription-shop/internal/infra/metrics"
	red "mpesa-subscription-shop/internal/infra/redis"
	"mpesa-subscription-shop/internal/infra/sched"
	"mpesa-subscription-shop/internal/infra/web"
	"mpesa-subscription-shop/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway, log notifier)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	if err := pg.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	// ---- Redis (optional; single-instance deployments can run without it) ----
	var redisClient *red.Client
	var locker usecase.Locker
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	}

	// ---- Catalog ----
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("catalog load failed")
	}

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	var inv repository.CredentialInventory
	switch cfg.Inventory.Backend {
	case "redis":
		// Config validation guarantees a redis URL for this backend.
		inv = red.NewCredentialStore(redisClient)
	default:
		inv = pg.NewCredentialRepo(pool)
	}
	logger.Info().Str("backend", cfg.Inventory.Backend).Msg("credential inventory ready")

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.PayHero.AuthToken == "" {
		gateway = payAdapters.NewNoopGateway(2)
		logger.Warn().Msg("payment gateway: noop (dev)")
	} else {
		gateway, err = payAdapters.NewPayHeroGateway(cfg.PayHero.AuthToken, cfg.PayHero.BaseURL, cfg.PayHero.ChannelID, cfg.PayHero.CallbackURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("payhero gateway init failed")
		}
	}

	// ---- Notifier ----
	var delivery adapter.Notifier
	if cfg.Notify.SMTP.Host != "" {
		delivery = notify.NewSMTPNotifier(cfg.Notify.SMTP, logger)
	} else {
		delivery = notify.NewLogNotifier(logger)
		logger.Warn().Msg("notifier: log only (no SMTP host configured)")
	}
	notifier := notify.NewAsyncNotifier(delivery, cfg.Notify.Workers, logger)
	notifier.Start(ctx, cfg.Notify.Workers)

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(
		payRepo, cat, inv, gateway, notifier, locker, metrics.NewMeter(),
		cfg.Payment.DonationMin, cfg.Payment.DonationMax,
		cfg.Notify.OpsContact, logger,
	)
	catalogUC := usecase.NewCatalogUseCase(cat)
	statsUC := usecase.NewStatsUseCase(payRepo, cat, inv)

	// ---- Reconciler ----
	reconciler := sched.NewPaymentReconciler(
		paymentUC, payRepo,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.MaxAttempts,
		cfg.Payment.Retention, logger,
	)
	go reconciler.Start(ctx)

	// ---- HTTP server ----
	srv := web.NewServer(paymentUC, catalogUC, statsUC, cfg.Server.AdminAPIKey, logger)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	notifier.Wait()
}
