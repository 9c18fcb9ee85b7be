// Package main provides the entrypoint for the airscope API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airscope/airscope/internal/aggregation"
	"github.com/airscope/airscope/internal/aggregation/openaq"
	"github.com/airscope/airscope/internal/api"
	"github.com/airscope/airscope/internal/api/middleware"
	"github.com/airscope/airscope/internal/satraster"
	"github.com/airscope/airscope/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airscope-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting airscope API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	engineMetrics, err := middleware.NewEngineMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize engine metrics")
		os.Exit(1)
	}

	// Initialize the OpenAQ provider
	apiKey := os.Getenv("OPENAQ_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("OPENAQ_API_KEY not set - upstream calls will be rejected")
	}

	provider := openaq.NewClient(openaq.ClientConfig{
		BaseURL: os.Getenv("OPENAQ_BASE_URL"),
		APIKey:  apiKey,
	})
	log.Info().Msg("OpenAQ provider initialized")

	// Initialize the aggregation engine
	maxConcurrent := 0
	if raw := os.Getenv("AGGREGATION_MAX_CONCURRENT"); raw != "" {
		maxConcurrent, err = strconv.Atoi(raw)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid AGGREGATION_MAX_CONCURRENT")
		}
	}

	aggregationService := aggregation.NewService(aggregation.ServiceConfig{
		Provider: provider,
		Logger:   log,
		Governor: aggregation.GovernorConfig{
			MaxConcurrent: maxConcurrent,
		},
	})
	log.Info().Msg("aggregation service initialized")

	// Initialize the raster read path when a data dir is configured. The
	// worker process writes the files; the API only reads them.
	var rasterService *satraster.Service
	if dataDir := os.Getenv("RASTER_DATA_DIR"); dataDir != "" {
		store, storeErr := satraster.NewFileStore(dataDir)
		if storeErr != nil {
			log.Fatal().Err(storeErr).Msg("failed to open raster store")
		}
		rasterService = satraster.NewService(satraster.ServiceConfig{
			Store:  store,
			Logger: log,
		})
		log.Info().Str("data_dir", dataDir).Msg("raster read path initialized")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		EngineMetrics:      engineMetrics,
		AggregationService: aggregationService,
		AirQualityProvider: provider,
		RasterService:      rasterService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
