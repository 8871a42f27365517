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

	"github.com/kwondongha1116/spendwallet/internal/ai"
	"github.com/kwondongha1116/spendwallet/internal/amqp"
	"github.com/kwondongha1116/spendwallet/internal/auth"
	"github.com/kwondongha1116/spendwallet/internal/cache"
	"github.com/kwondongha1116/spendwallet/internal/config"
	apphttp "github.com/kwondongha1116/spendwallet/internal/http"
	"github.com/kwondongha1116/spendwallet/internal/news"
	"github.com/kwondongha1116/spendwallet/internal/services"
	"github.com/kwondongha1116/spendwallet/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

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

	// Without an API key the analyzer runs on the rule-based fallback.
	var llm ai.Client
	if cfg.OpenAIAPIKey != "" {
		llm = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		logger.Info("OpenAI client initialized", "model", cfg.OpenAIModel)
	} else {
		logger.Info("OpenAI disabled - no OPENAI_API_KEY provided, using rule-based analysis")
	}
	analyzer := ai.NewAnalyzer(llm)

	// AMQP is optional: without a broker records stay pending and the
	// worker's periodic scan picks them up.
	var publisher services.SyncPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, sheet sync falls back to periodic scan", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	dailyCache := cache.NewLRUCache[services.DailyReport](512, 10*time.Minute)
	reports := services.NewReportService(repo, analyzer, dailyCache)
	ingest := services.NewIngestService(repo, analyzer, publisher, reports.InvalidateDaily)
	insights := services.NewInsightService(repo, news.NewClient(cfg.NewsAPIKey), analyzer)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpireMinutes)

	srv := apphttp.NewServer(":"+cfg.Port, ingest, reports, insights, repo, tokens)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

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

	logger.Info("Starting spendwallet server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
