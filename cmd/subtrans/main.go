package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	apihttp "subtrans/internal/api/http"
	"subtrans/internal/app"
	"subtrans/internal/backend"
	"subtrans/internal/cache"
	"subtrans/internal/domain"
	"subtrans/internal/history"
	"subtrans/internal/journal"
	"subtrans/internal/metrics"
	"subtrans/internal/orchestrator"
	"subtrans/internal/progress"
	"subtrans/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "subtrans")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "subtrans"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("cacheDir", cfg.CacheDir),
		slog.Int("cacheTTLHours", cfg.CacheTTLHours),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoOpts := otelmongo.NewMonitor()
	mongoClient, err := history.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(mongoOpts))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	historyStore := history.NewStore(mongoClient, cfg.MongoDatabase, cfg.MongoCollection)
	if err := historyStore.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("history ensure indexes failed", slog.String("error", err.Error()))
	}

	cacheStore, err := cache.NewStore(cfg.CacheDir, logger)
	if err != nil {
		logger.Error("cache store init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	go runCacheExpiry(rootCtx, cacheStore, time.Duration(cfg.CacheTTLHours)*time.Hour, logger)

	registry, err := backend.NewRegistry(backendConfigsFromEnv())
	if err != nil {
		logger.Error("backend registry init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("backends configured", slog.Any("names", registry.Names()))

	progressHub := progress.NewHub(logger)
	errorJournal := journal.New(cfg.JournalCapacity)

	orchCfg := orchestrator.Config{
		BatchSize:               cfg.TranslateBatchSize,
		MaxRetriesPerBackend:    cfg.TranslateMaxRetries,
		ConsecutiveFailureAbort: cfg.TranslateAbortAfterConsecutive,
		InterBatchPacing:        time.Duration(cfg.TranslateInterBatchPaceMs) * time.Millisecond,
		MaxBackoff:              time.Duration(cfg.TranslateBackoffCapMs) * time.Millisecond,
		ConcurrentBatches:       cfg.TranslateConcurrency,
	}
	orch := orchestrator.New(cacheStore, nil, progressHub, errorJournal, http.DefaultClient, logger, orchCfg)

	server := apihttp.NewServer(orch, registry, progressHub, errorJournal,
		apihttp.WithLogger(logger),
		apihttp.WithCORSAllowedOrigins(cfg.CORSAllowedOrigins),
		apihttp.WithHistory(historyStore),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // the progress websocket is long-lived
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// backendConfigsFromEnv builds one domain.ProviderConfig per supported
// backend name from that backend's own env var prefix, so an operator
// only needs to set the keys for the services they actually use.
func backendConfigsFromEnv() map[string]domain.ProviderConfig {
	configs := make(map[string]domain.ProviderConfig)

	if key := os.Getenv("DEEPL_API_KEY"); key != "" {
		cfg := domain.ProviderConfig{
			APIKey:      key,
			EndpointURL: os.Getenv("DEEPL_ENDPOINT_URL"),
			Formality:   domain.Formality(os.Getenv("DEEPL_FORMALITY")),
		}
		applyBudgetEnv(&cfg, "DEEPL")
		configs["deepl"] = cfg
	}
	if url := os.Getenv("LIBRETRANSLATE_ENDPOINT_URL"); url != "" {
		cfg := domain.ProviderConfig{
			EndpointURL: url,
			APIKey:      os.Getenv("LIBRETRANSLATE_API_KEY"),
		}
		applyBudgetEnv(&cfg, "LIBRETRANSLATE")
		configs["libretranslate"] = cfg
	}
	// MyMemory's public endpoint needs no key; an optional contact email
	// bumps its daily quota (overloaded onto APIKey, per the backend).
	mymemoryCfg := domain.ProviderConfig{APIKey: os.Getenv("MYMEMORY_CONTACT_EMAIL")}
	applyBudgetEnv(&mymemoryCfg, "MYMEMORY")
	configs["mymemory"] = mymemoryCfg

	return configs
}

// applyBudgetEnv reads the optional per-backend {requests_per_period,
// chars_per_period} budget of spec §5 from <prefix>_REQUESTS_PER_PERIOD,
// <prefix>_CHARS_PER_PERIOD and <prefix>_PERIOD_SECONDS. Any var left
// unset or unparseable leaves that dimension at its zero value
// (unlimited, or the whole budget disabled when PeriodSeconds is 0).
func applyBudgetEnv(cfg *domain.ProviderConfig, prefix string) {
	cfg.RequestsPerPeriod = intEnv(prefix + "_REQUESTS_PER_PERIOD")
	cfg.CharsPerPeriod = intEnv(prefix + "_CHARS_PER_PERIOD")
	cfg.PeriodSeconds = intEnv(prefix + "_PERIOD_SECONDS")
}

func intEnv(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return v
}

func runCacheExpiry(ctx context.Context, store *cache.Store, maxAge time.Duration, logger *slog.Logger) {
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Expire(ctx, maxAge)
			if err != nil {
				logger.Warn("cache expiry failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Info("cache entries expired", slog.Int("count", n))
			}
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
