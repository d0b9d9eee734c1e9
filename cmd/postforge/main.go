package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/bakkerme/postforge/internal/api"
	"github.com/bakkerme/postforge/internal/config"
	"github.com/bakkerme/postforge/internal/core"
	"github.com/bakkerme/postforge/internal/dedupe"
	"github.com/bakkerme/postforge/internal/llm/openai"
	"github.com/bakkerme/postforge/internal/observability/otelx"
	"github.com/bakkerme/postforge/internal/pipeline"
	"github.com/bakkerme/postforge/internal/retry"
	"github.com/bakkerme/postforge/internal/scheduler"
	"github.com/bakkerme/postforge/internal/source/twitter"
	"github.com/bakkerme/postforge/internal/store/postgres"
	"github.com/bakkerme/postforge/internal/transform"
)

func main() {
	configPath := flag.String("config", "", "path to postforge.yaml (optional)")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := otelx.Init(ctx, logger, cfg.OTel)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	if shutdownOTel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(ctx); err != nil {
				logger.Warn("otel shutdown", "error", err)
			}
		}()
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	fetcher := twitter.New(twitter.Config{
		BaseURL: cfg.Twitter.BaseURL,
		APIKey:  cfg.Twitter.APIKey,
		Timeout: cfg.Twitter.Timeout.Std(),
		Retry:   retry.Config{Attempts: cfg.Twitter.RetryAttempts},
	}, logger)

	cache := dedupe.NewMemoryStore(cfg.Dedupe.TTL.Std(), cfg.Dedupe.SweepInterval.Std())
	defer cache.Close()

	llmClient := openai.NewClient(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})

	formatter, err := transform.NewFormatter(llmClient, transform.Config{
		Model:                cfg.OpenAI.Model,
		Temperature:          cfg.OpenAI.Temperature,
		Language:             cfg.Transform.Language,
		DecodeRetries:        cfg.Transform.DecodeRetries,
		FallbackTag:          cfg.Transform.FallbackTag,
		FallbackLocalizedTag: cfg.Transform.FallbackLocalizedTag,
	}, logger)
	if err != nil {
		logger.Error("failed to build formatter", "error", err)
		os.Exit(1)
	}

	store := postgres.NewContentStore(db, cfg.Pipeline.Kind, logger)

	pipe, err := pipeline.New(pipeline.Deps{
		Fetcher:   fetcher,
		Cache:     cache,
		Formatter: formatter,
		Renderer:  transform.NewBodyRenderer(),
		Store:     store,
	}, pipeline.Options{
		DefaultStatus:  core.Status(cfg.Pipeline.DefaultStatus),
		FallbackStatus: core.Status(cfg.Pipeline.FallbackStatus),
		MarkFailures:   cfg.Dedupe.MarkFailuresEnabled(),
		SkipRule:       cfg.Pipeline.SkipRule,
	}, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.New(pipe, cfg.Scheduler.Authors, cfg.Scheduler.Interval.Std(), logger)
	if err != nil {
		logger.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	server := api.NewServer(api.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
	}, api.Deps{
		Pipeline:  pipe,
		Formatter: formatter,
		Store:     store,
		Scheduler: sched,
	}, logger)

	go func() {
		logger.Info("starting http server", "addr", cfg.Server.Addr)
		if err := server.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}
