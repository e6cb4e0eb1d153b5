package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mortality-platform/internal/config"
	"mortality-platform/internal/handlers"
	"mortality-platform/internal/services"
	"mortality-platform/internal/source"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("mortality-api", version, logging.ParseLevel(cfg.Logging.Level))
	logger.SetFormat(cfg.Logging.Format)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting mortality platform API server", logging.Fields{
		"version":             version,
		"server_host":         cfg.Server.Host,
		"server_port":         cfg.Server.Port,
		"source_type":         cfg.Source.Type,
		"target_jurisdiction": cfg.Cohort.TargetJurisdiction,
		"target_group":        cfg.Cohort.TargetGroup,
	})

	// Initialize metrics collector
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsCollector := metrics.NewCollector("mortality_platform", registry)

	// Initialize source
	src, closeSource, err := source.FromConfig(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to open source", logging.Fields{
			"source_type": cfg.Source.Type,
		}, err)
	}
	defer closeSource()

	// Initialize services
	pipeline := services.NewPipelineService(src, cfg.Source.Type, cfg.Cohort.Target(), cfg.Pipeline.Workers, logger, metricsCollector)

	// A failed first run leaves the server up and unhealthy until a refresh succeeds
	if _, err := pipeline.Run(ctx); err != nil {
		logger.Error(ctx, "[STARTUP_PIPELINE_ERROR] Initial pipeline run failed", logging.Fields{
			"source": src.Name(),
		}, err)
	}

	// Initialize handlers
	mortalityHandler := handlers.NewMortalityHandler(pipeline, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestLogging(logger))

	// Register routes
	mortalityHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
