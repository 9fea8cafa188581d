package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/paxstats/internal/adapters/http/api"
	"github.com/okian/paxstats/internal/adapters/http/swagger"
	"github.com/okian/paxstats/internal/adapters/repository"
	"github.com/okian/paxstats/internal/adapters/source"
	app "github.com/okian/paxstats/internal/app"
	"github.com/okian/paxstats/internal/config"
	"github.com/okian/paxstats/internal/domain/dedupe"
	"github.com/okian/paxstats/internal/domain/ingest"
	"github.com/okian/paxstats/pkg/logger"
	"github.com/okian/paxstats/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> .env -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithFile(cfg.LogFile)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	mm := metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	)

	tz, err := cfg.Location()
	if err != nil {
		return err
	}

	src, closeSrc, err := newSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	defer closeSrc()

	store, closeStore := newStore(cfg)
	defer closeStore()

	loader := repository.NewLoader(ctx, src,
		repository.WithStore(store),
		repository.WithIngestOptions(
			ingest.WithLeaderPolicy(cfg.LeaderPolicy),
			ingest.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
		),
	)
	defer func() { _ = loader.Close() }()

	svc := app.New(loader,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.RefreshWorkers),
		app.WithQueueSize(cfg.RefreshQueueSize),
		app.WithRegions(cfg.Regions),
		app.WithTimezone(tz),
		app.WithKotter(cfg.KotterThresholdDays, cfg.KotterMaxDays),
		app.WithBuddyWindow(cfg.BuddyWindowDays),
		app.WithMilestoneStep(cfg.MilestoneStep),
		app.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	// Warm the snapshot so the first request does not pay for the fetch. A
	// failure here is not fatal: reads retry the load.
	go func() {
		if _, err := loader.Snapshot(ctx); err != nil {
			log.Warn(ctx, "initial snapshot load failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx, mm.RefreshInterval())

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(svc, limiter, cfg.CORSOrigins),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("source", cfg.Source), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newSource builds the configured data source. The returned func releases
// its resources.
func newSource(ctx context.Context, cfg *config.Config) (source.Source, func(), error) {
	switch cfg.Source {
	case config.SourceHTTP:
		return source.NewHTTPSource(cfg.EventsURL, cfg.PeopleURL,
			source.WithPaths(cfg.EventsPath, cfg.PeoplePath),
			source.WithTimeout(cfg.FetchTimeout),
			source.WithRetry(cfg.FetchAttempts, cfg.FetchBackoff),
		), func() {}, nil
	case config.SourceFile:
		return source.NewFileSource(cfg.EventsFile, cfg.PeopleFile), func() {}, nil
	case config.SourcePostgres:
		pg, err := source.NewPostgresSource(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, cfg.Source)
}

// newStore builds the configured snapshot store.
func newStore(cfg *config.Config) (repository.Store, func()) {
	if cfg.Store != config.StoreRedis {
		return repository.NewMemoryStore(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return repository.NewRedisStore(client, cfg.RedisPrefix), func() { _ = client.Close() }
}

// newHandler registers the docs and API routes and wraps them in the
// middleware stack.
func newHandler(svc *app.Service, limiter *api.RateLimiter, origins []string) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc).Register(mux)
	return api.Stack(mux, limiter, origins)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
