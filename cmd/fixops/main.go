package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixops/internal/cli"
	"fixops/internal/feed"
	apphttp "fixops/internal/http"
	applog "fixops/internal/log"
	"fixops/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentAPI)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The change feed is optional: without a broker, writes still land
	// and reports compute live; only the snapshot worker goes without.
	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		feedClient, err := feed.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize feed client", "error", err)
			os.Exit(1)
		}
		defer feedClient.Close()
		publisher = feedClient
		logger.Info("Change feed enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Change feed disabled - no AMQP_URL provided")
	}

	scheduleSvc := services.NewScheduleService(repo, publisher)
	ledgerSvc := services.NewLedgerService(repo, publisher)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Port,
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Users:              repo,
		Employees:          repo,
		Schedules:          scheduleSvc,
		Ledger:             ledgerSvc,
		Inventory:          services.NewInventoryService(repo),
		Payroll:            services.NewPayrollService(repo, repo),
		Reports:            services.NewReportService(repo, repo),
		Importer:           services.NewImportService(scheduleSvc, ledgerSvc),
		ReadyCheck:         repo.Ping,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
