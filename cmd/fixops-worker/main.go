package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixops/internal/cli"
	"fixops/internal/core"
	"fixops/internal/feed"
	applog "fixops/internal/log"
	"fixops/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting fixops-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	snapshotWorker := worker.NewSnapshotWorker(repo, repo, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rebuild recent days on startup so missed events never leave stale
	// snapshots behind.
	if err := snapshotWorker.Backfill(ctx, backfillRange(cfg.BackfillDays)); err != nil {
		logger.Error("Startup backfill failed", "error", err)
		// Keep running; the periodic backfill retries.
	}

	if cfg.AMQPURL != "" {
		feedClient, err := feed.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize feed client", "error", err)
			os.Exit(1)
		}
		defer feedClient.Close()

		sub, err := feedClient.Subscribe(ctx)
		if err != nil {
			logger.Error("Failed to subscribe to record changes", "error", err)
			os.Exit(1)
		}
		defer sub.Close()

		go func() {
			if err := snapshotWorker.Run(ctx, sub); err != nil && ctx.Err() == nil {
				logger.Error("Feed consumption stopped", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Info("Change feed disabled - relying on periodic backfill only")
	}

	ticker := time.NewTicker(cfg.BackfillInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := snapshotWorker.Backfill(ctx, backfillRange(cfg.BackfillDays)); err != nil {
					logger.Error("Periodic backfill failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	slog.Info("Worker shutdown complete")
}

// backfillRange covers the last n days up to and including today.
func backfillRange(n int) core.DateRange {
	now := time.Now()
	return core.DateRange{
		From: now.AddDate(0, 0, -(n - 1)).Format(core.DayLayout),
		To:   now.Format(core.DayLayout),
	}
}
