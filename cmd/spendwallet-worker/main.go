package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/kwondongha1116/spendwallet/internal/amqp"
	"github.com/kwondongha1116/spendwallet/internal/config"
	"github.com/kwondongha1116/spendwallet/internal/mail"
	gsheet "github.com/kwondongha1116/spendwallet/internal/sheets/google"
	"github.com/kwondongha1116/spendwallet/internal/storage"
	"github.com/kwondongha1116/spendwallet/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting spendwallet-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		logger.Error("Failed to run migrations", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Spreadsheet export runs only when a spreadsheet is configured.
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewClient(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		// The queue is optional; the periodic pending scan covers broker
		// outages.
		var consumer worker.SyncConsumer
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic scan only", "error", err)
		} else {
			defer amqpClient.Close()
			consumer = amqpClient
		}

		syncWorker := worker.NewSyncWorker(repo, sheetsClient, consumer, cfg.SyncBatchSize, cfg.SyncInterval)
		g.Go(func() error {
			return syncWorker.Run(ctx)
		})
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Daily reminder mails run only when SendGrid is configured.
	if cfg.SendGridAPIKey != "" && cfg.SenderEmail != "" {
		mailer := mail.NewSendGridClient(cfg.SendGridAPIKey, cfg.SenderEmail)
		reminders := worker.NewReminderScheduler(repo, mailer, cfg.ReminderHour)
		g.Go(func() error {
			return reminders.Run(ctx)
		})
	} else {
		logger.Info("Daily reminders disabled - SendGrid not configured")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
