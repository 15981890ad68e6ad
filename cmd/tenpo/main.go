package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tenpo/internal/amqp"
	"tenpo/internal/config"
	apphttp "tenpo/internal/http"
	"tenpo/internal/ledger"
	"tenpo/internal/lifecycle"
	"tenpo/internal/registry"
	"tenpo/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting tenpo server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ledgerClient := ledger.New(cfg.LedgerBaseURL, cfg.LedgerTimeout)

	accounts := registry.New(ledgerClient)
	if err := accounts.WarmUp(context.Background()); err != nil {
		// The view fills lazily on lookups, so startup proceeds.
		logger.Warn("Registry warm-up failed, continuing with empty view", "error", err)
	}

	mirror, err := storage.NewMirror(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize transaction mirror", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer mirror.Close()

	// AMQP is optional; without it export relies on the worker's periodic sweep.
	var events lifecycle.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	controller := lifecycle.NewController(accounts, ledgerClient, mirror, events)

	srv := apphttp.NewServer(":"+cfg.Port, controller, accounts, mirror)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
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

	logger.Info("Starting tenpo server", "port", cfg.Port, "ledger", cfg.LedgerBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
