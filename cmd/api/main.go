package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/allotments-backend/api/controllers"
	"github.com/angelmondragon/allotments-backend/api/routes"
	"github.com/angelmondragon/allotments-backend/internal/alerts"
	"github.com/angelmondragon/allotments-backend/internal/allotments"
	"github.com/angelmondragon/allotments-backend/internal/audit"
	"github.com/angelmondragon/allotments-backend/internal/catalog"
	"github.com/angelmondragon/allotments-backend/internal/customers"
	"github.com/angelmondragon/allotments-backend/internal/inventory"
	"github.com/angelmondragon/allotments-backend/internal/reservations"
	"github.com/angelmondragon/allotments-backend/pkg/config"
	"github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
	"github.com/angelmondragon/allotments-backend/pkg/metrics"
	"github.com/angelmondragon/allotments-backend/pkg/migrate"
	"github.com/angelmondragon/allotments-backend/pkg/outbox"
	"github.com/angelmondragon/allotments-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, services, routes.Deps{
			Idempotency: redisClient,
			Gatherer:    registry,
			Readiness: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (routes.Services, error) {
	gdb := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gdb), logg)
	policy := db.RetryPolicy{
		MaxAttempts: cfg.Reservation.MaxAttempts,
		BaseDelay:   cfg.Reservation.BaseDelay,
	}

	saver, err := audit.NewSaver(dbClient, logg, policy)
	if err != nil {
		return routes.Services{}, err
	}

	inventoryRepo := inventory.NewRepository(gdb)
	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		DB:      dbClient,
		Repo:    inventoryRepo,
		Outbox:  emitter,
		Logger:  logg,
		Metrics: metrics.NewReservationMetrics(reg),
		Retry:   policy,
	})
	if err != nil {
		return routes.Services{}, err
	}

	catalogSvc, err := catalog.NewService(gdb, dbClient, saver)
	if err != nil {
		return routes.Services{}, err
	}

	allotmentSvc, err := allotments.NewService(allotments.ServiceParams{
		DB:        gdb,
		Tx:        dbClient,
		Saver:     saver,
		Inventory: inventoryRepo,
		Outbox:    emitter,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	customerSvc, err := customers.NewService(gdb, dbClient, saver)
	if err != nil {
		return routes.Services{}, err
	}

	reservationSvc, err := reservations.NewService(reservations.ServiceParams{
		DB:       gdb,
		Tx:       dbClient,
		Saver:    saver,
		Reserver: inventorySvc,
		Outbox:   emitter,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	alertSvc, err := alerts.NewService(alerts.ServiceParams{
		Repo:     alerts.NewRepository(gdb),
		Cache:    redisClient,
		CacheTTL: cfg.Alerts.CacheTTL,
		Windows:  alerts.WindowsFromConfig(cfg.Alerts),
		Logger:   logg,
		Metrics:  metrics.NewAlertMetrics(reg),
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:      catalogSvc,
		Allotments:   allotmentSvc,
		Inventory:    inventorySvc,
		Customers:    customerSvc,
		Reservations: reservationSvc,
		Alerts:       alertSvc,
	}, nil
}
