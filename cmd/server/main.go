package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anandsharma/kite-bridge/internal/clients/kite"
	"github.com/anandsharma/kite-bridge/internal/config"
	"github.com/anandsharma/kite-bridge/internal/modules/portfolio"
	"github.com/anandsharma/kite-bridge/internal/modules/session"
	"github.com/anandsharma/kite-bridge/internal/modules/snapshot"
	"github.com/anandsharma/kite-bridge/internal/scheduler"
	"github.com/anandsharma/kite-bridge/internal/server"
	"github.com/anandsharma/kite-bridge/pkg/logger"
)

func main() {
	// Load configuration first so the log level is honored
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Kite Bridge")

	// Wire components
	sessions := session.New(cfg.KiteAPIKey, cfg.KiteAccessToken, log)
	store := snapshot.New(cfg.SnapshotPath, log)
	svc := portfolio.NewService(sessions, store, log)
	kc := kite.NewClient(cfg.KiteAPIKey, log)

	// Optional in-process daily snapshot; most deployments trigger
	// /api/save_daily_data from an external scheduler instead.
	sched := scheduler.New(log)
	if cfg.SnapshotCron != "" {
		if err := sched.AddJob(cfg.SnapshotCron, scheduler.NewDailySnapshot(svc, log)); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.SnapshotCron).Msg("Failed to register snapshot job")
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		Cfg:       cfg,
		Kite:      kc,
		Sessions:  sessions,
		Portfolio: svc,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
