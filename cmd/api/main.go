package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/grievai-platform/cmd/mainconfig"
	"github.com/wolfman30/grievai-platform/internal/api/router"
	"github.com/wolfman30/grievai-platform/internal/app/bootstrap"
	"github.com/wolfman30/grievai-platform/internal/classification"
	appconfig "github.com/wolfman30/grievai-platform/internal/config"
	"github.com/wolfman30/grievai-platform/internal/geocode"
	"github.com/wolfman30/grievai-platform/internal/grievances"
	"github.com/wolfman30/grievai-platform/internal/observability/metrics"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting grievai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	for _, issue := range cfg.Issues() {
		logger.Warn("configuration issue", "issue", issue)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.close()

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	handler http.Handler
	close   func()
}

// buildApp wires stores, providers and handlers into the router.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	metricsHandler, classificationMetrics, geocodeMetrics := setupMetrics()

	repo, closeRepo, err := bootstrap.BuildRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	gateway, closeGateway, err := bootstrap.BuildGateway(ctx, cfg, mainconfig.LoadAWSConfig, logger)
	if err != nil {
		closeRepo()
		return nil, err
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	analyzer := classification.NewService(gateway, logger.With("component", "classification"),
		classification.WithTimeout(cfg.LLMTimeout),
		classification.WithMetrics(classificationMetrics),
	)
	geo := bootstrap.BuildGeocodeService(cfg, redisClient, geocodeMetrics, logger.With("component", "geocode"))

	done := make(chan struct{})
	handler := router.New(&router.Config{
		Logger:             logger,
		AnalyzeHandler:     classification.NewHandler(analyzer, logger),
		GrievancesHandler:  grievances.NewHandler(repo, analyzer, logger),
		LocationsHandler:   geocode.NewHandler(geo, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthRequired:       cfg.AuthRequired,
		AuthJWTSecret:      cfg.AuthJWTSecret,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		Done:               done,
	})

	return &app{
		handler: handler,
		close: func() {
			close(done)
			closeGateway()
			if redisClient != nil {
				_ = redisClient.Close()
			}
			closeRepo()
		},
	}, nil
}

// setupMetrics registers collectors on a private registry served at /metrics.
func setupMetrics() (http.Handler, *metrics.ClassificationMetrics, *metrics.GeocodeMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewClassificationMetrics(reg), metrics.NewGeocodeMetrics(reg)
}
