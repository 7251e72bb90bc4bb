package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gatherly/availability/internal/app"
	"github.com/gatherly/availability/internal/config"
	"github.com/gatherly/availability/internal/metrics"
	"github.com/gatherly/availability/internal/repository"
	"github.com/gatherly/availability/internal/service"
	"github.com/gatherly/availability/internal/source"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting availability sync daemon",
		zap.String("environment", cfg.Environment),
		zap.String("server_timezone", cfg.ServerTimezone))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	serverLocation := cfg.Location()

	availabilityRepo := repository.NewAvailabilityRepository(pool)
	syncRepo := repository.NewCalendarSyncRepository(pool)

	tokens := source.NewStoredTokenProvider(syncRepo)
	sources := []source.BusySource{
		source.NewGoogleSource(tokens, serverLocation, logger),
		source.NewOutlookSource(tokens, serverLocation, logger),
	}

	reconciler := service.NewReconciler(cfg.MinRangeMinutes, logger)
	syncService := service.NewSyncService(
		availabilityRepo, syncRepo, sources, reconciler,
		serverLocation, cfg.LookaheadWeeks, logger)

	scheduler := app.NewScheduler(syncService, cfg.SyncInterval(), logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info("Serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down")
}
