// Command api serves the daily digest over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-digest/internal/config"
	"daily-digest/internal/infra/bing"
	"daily-digest/internal/infra/cache"
	"daily-digest/internal/infra/tianapi"
	"daily-digest/internal/infra/worker"
	"daily-digest/internal/observability/logging"
	"daily-digest/internal/observability/tracing"
	pkgconfig "daily-digest/internal/pkg/config"
	"daily-digest/internal/resilience/retry"
	digestUC "daily-digest/internal/usecase/digest"
	"daily-digest/internal/usecase/feed"

	hhttp "daily-digest/internal/handler/http"
	hdigest "daily-digest/internal/handler/http/digest"
	"daily-digest/internal/handler/http/middleware"
	"daily-digest/internal/handler/http/requestid"
)

func main() {
	// Bootstrap logger until the configured one exists.
	boot := logging.NewLogger()
	cfg, err := config.Load(boot, pkgconfig.NewConfigMetrics("digest"))
	if err != nil {
		boot.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewLoggerTo(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("addr", cfg.HTTP.Addr),
		slog.Any("tianapi", cfg.TianAPI),
		slog.String("timezone", cfg.Digest.Timezone),
		slog.Duration("cache_expiry", cfg.Digest.CacheExpiry))

	shutdownTracing := tracing.Setup()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	version := getVersion()
	app := setup(logger, cfg, version)
	run(logger, cfg, app, version)
}

func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// components holds what run needs after wiring.
type components struct {
	Handler   http.Handler
	Service   *digestUC.Service
	Prewarmer *worker.Prewarmer
}

// setup wires clients, the digest service, routes and middleware.
func setup(logger *slog.Logger, cfg *config.Config, version string) *components {
	api := tianapi.NewClient(tianapi.Config{
		BaseURL:       cfg.TianAPI.BaseURL,
		Key:           cfg.TianAPI.Key,
		Timeout:       cfg.TianAPI.Timeout,
		RatePerSecond: cfg.TianAPI.RatePerSecond,
		Burst:         cfg.TianAPI.Burst,
	})
	images := bing.NewClient(bing.Config{
		BaseURL:    cfg.Bing.BaseURL,
		Market:     cfg.Bing.Market,
		Resolution: cfg.Bing.Resolution,
		Timeout:    cfg.Bing.Timeout,
	})

	svc := digestUC.NewService(
		feed.NewFetcher(api, images),
		digestUC.NewCaches(cache.WithExpiry(cfg.Digest.CacheExpiry)),
		digestUC.Config{
			Location:         cfg.Location(),
			InterCallSpacing: cfg.Digest.InterCallSpacing,
			SweepPolicy:      retry.Policy(cfg.Digest.SweepRetry),
			ClientPolicy:     retry.Policy(cfg.Digest.ClientRetry),
		},
	)

	var breakers []hhttp.Breaker
	for _, b := range api.Breakers() {
		breakers = append(breakers, b)
	}
	breakers = append(breakers, images.Breaker())

	health := &hhttp.HealthHandler{Version: version, Service: svc, Breakers: breakers}

	var prewarmer *worker.Prewarmer
	if cfg.Prewarm.Enabled {
		prewarmer = worker.NewPrewarmer(svc, cfg.Prewarm.Timeout,
			worker.WithLogger(logger.With(slog.String("component", "prewarm"))),
			worker.WithMetrics(worker.NewMetrics()))
		health.Prewarm = prewarmer
	}

	mux := http.NewServeMux()
	hdigest.Register(mux, svc)
	mux.Handle("GET /health", health)
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	return &components{
		Handler:   applyMiddleware(logger, cfg, mux),
		Service:   svc,
		Prewarmer: prewarmer,
	}
}

// applyMiddleware wraps the handler with middleware chain.
// Middleware order: CORS → Request ID → Tracing → Input Validation → Rate Limit → Recovery → Logging → Metrics → Timeout
func applyMiddleware(logger *slog.Logger, cfg *config.Config, handler http.Handler) http.Handler {
	corsConfig := middleware.DefaultCORSConfig(cfg.HTTP.AllowedOrigins)
	corsConfig.Logger = logger
	if len(corsConfig.AllowedOrigins) > 0 {
		logger.Info("CORS enabled", slog.Any("allowed_origins", corsConfig.AllowedOrigins))
	}

	chain := handler

	// Apply in reverse order (innermost to outermost)
	chain = hhttp.Timeout(cfg.HTTP.RequestTimeout)(chain)
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)

	if cfg.HTTP.RateLimit > 0 {
		var opts []hhttp.RateLimiterOption
		if cfg.HTTP.TrustProxyHeaders {
			opts = append(opts, hhttp.WithTrustedProxyHeaders())
		}
		limiter := hhttp.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow, opts...)
		chain = limiter.Limit(chain)
		logger.Info("rate limiting enabled",
			slog.Int("limit", cfg.HTTP.RateLimit),
			slog.Duration("window", cfg.HTTP.RateWindow),
			slog.Bool("trust_proxy_headers", cfg.HTTP.TrustProxyHeaders))
	} else {
		logger.Warn("rate limiting is disabled")
	}

	chain = hhttp.InputValidation()(chain)
	chain = tracing.Middleware(chain)
	chain = requestid.Middleware(chain)
	chain = middleware.CORS(corsConfig)(chain)

	return chain
}

// run starts the prewarm schedule and the HTTP server, then shuts both down on SIGINT/SIGTERM.
func run(logger *slog.Logger, cfg *config.Config, app *components, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if app.Prewarmer != nil {
		scheduler, err := app.Prewarmer.Schedule(ctx, cfg.Prewarm.Schedule, cfg.Location())
		if err != nil {
			logger.Error("failed to schedule prewarm", slog.Any("error", err))
			os.Exit(1)
		}
		scheduler.Start()
		defer func() {
			<-scheduler.Stop().Done()
			logger.Debug("prewarm scheduler stopped")
		}()

		// Warm today's caches once at startup so the first visitor does not pay for the sweep.
		go func() { _ = app.Prewarmer.Run(ctx) }()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.HTTP.Addr),
			slog.String("version", version),
			slog.Bool("configured", app.Service.Status().Configured))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Cancel background work (prewarm runs, in-flight sweeps detached from requests)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
