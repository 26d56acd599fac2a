package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hanamarche/hanamarche-backend/api/routes"
	"github.com/hanamarche/hanamarche-backend/internal/bank"
	checkoutsvc "github.com/hanamarche/hanamarche-backend/internal/checkout"
	"github.com/hanamarche/hanamarche-backend/internal/ledger"
	"github.com/hanamarche/hanamarche-backend/internal/paycode"
	"github.com/hanamarche/hanamarche-backend/internal/payout"
	"github.com/hanamarche/hanamarche-backend/internal/settlement"
	storesvc "github.com/hanamarche/hanamarche-backend/internal/stores"
	"github.com/hanamarche/hanamarche-backend/pkg/config"
	"github.com/hanamarche/hanamarche-backend/pkg/db"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
	"github.com/hanamarche/hanamarche-backend/pkg/metrics"
	"github.com/hanamarche/hanamarche-backend/pkg/migrate"
	"github.com/hanamarche/hanamarche-backend/pkg/redis"
	"github.com/hanamarche/hanamarche-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	payMetrics := metrics.NewPaymentMetrics(registry)

	gormDB := dbClient.DB()
	bankRepo := bank.NewRepository(gormDB)

	codeService, err := paycode.NewService(paycode.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create paycode service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	storeService, err := storesvc.NewService(storesvc.NewRepository(gormDB), bankRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}

	payoutService, err := payout.NewService(payout.NewRepository(gormDB), bankRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	transactionRepo := checkoutsvc.NewRepository(gormDB)
	checkoutService, err := checkoutsvc.NewService(
		transactionRepo,
		codeService,
		storeService,
		checkoutsvc.NewStripeClient(stripeClient),
		stripeClient,
		cfg.Checkout,
		logg,
		payMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Transactions:      transactionRepo,
		Codes:             codeService,
		Ledger:            ledgerService,
		Payouts:           payoutService,
		Stores:            storeService,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           payMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	eventGuard, err := settlement.NewEventGuard(redisClient, cfg.Webhook.EventGuardTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create event guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			checkoutService,
			ledgerService,
			storeService,
			payoutService,
			stripeClient,
			settlementService,
			eventGuard,
		),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
