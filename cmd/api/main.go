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

	"github.com/hundredwebs/petimage-backend/api/routes"
	"github.com/hundredwebs/petimage-backend/internal/credits"
	"github.com/hundredwebs/petimage-backend/internal/ledger"
	"github.com/hundredwebs/petimage-backend/internal/products"
	"github.com/hundredwebs/petimage-backend/internal/subscriptions"
	"github.com/hundredwebs/petimage-backend/internal/users"
	creemwebhook "github.com/hundredwebs/petimage-backend/internal/webhooks/creem"
	"github.com/hundredwebs/petimage-backend/pkg/config"
	"github.com/hundredwebs/petimage-backend/pkg/creem"
	"github.com/hundredwebs/petimage-backend/pkg/db"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
	"github.com/hundredwebs/petimage-backend/pkg/metrics"
	"github.com/hundredwebs/petimage-backend/pkg/migrate"
	"github.com/hundredwebs/petimage-backend/pkg/redis"
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

	creemClient, err := creem.NewClient(context.Background(), cfg.Creem, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create creem client", err)
		os.Exit(1)
	}

	catalog := products.NewCatalog()

	userRepo := users.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		DB:      dbClient,
		Repo:    ledger.NewRepository(dbClient.DB()),
		Users:   userRepo,
		Catalog: catalog,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	creditsService, err := credits.NewService(credits.ServiceParams{
		DB:     dbClient,
		Repo:   credits.NewRepository(dbClient.DB()),
		Users:  userRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credits service", err)
		os.Exit(1)
	}

	subsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:     subscriptions.NewRepository(dbClient.DB()),
		Provider: creemClient,
		Catalog:  catalog,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	webhookService, err := creemwebhook.NewService(creemwebhook.ServiceParams{
		Ledger: ledgerService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := creemwebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "creem")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Creem:        creemClient,
			Catalog:      catalog,
			Credits:      creditsService,
			Subs:         subsService,
			Webhook:      webhookService,
			WebhookGuard: webhookGuard,
			Metrics:      webhookMetrics,
			Registry:     registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down, draining in-flight requests")
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
