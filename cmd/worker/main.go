// Package main provides the entrypoint for the airscope extraction worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airscope/airscope/internal/satraster"
	"github.com/airscope/airscope/internal/satraster/tempo"
	"github.com/airscope/airscope/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airscope-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting airscope worker")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	dataDir := os.Getenv("RASTER_DATA_DIR")
	if dataDir == "" {
		dataDir = "data/raster"
	}

	tempoBaseURL := os.Getenv("TEMPO_BASE_URL")
	if tempoBaseURL == "" {
		log.Fatal().Msg("TEMPO_BASE_URL is required")
	}

	interval := 30 * time.Minute
	if raw := os.Getenv("EXTRACT_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid EXTRACT_INTERVAL")
		}
		interval = parsed
	}

	var retention time.Duration
	if raw := os.Getenv("RASTER_RETENTION"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid RASTER_RETENTION")
		}
		retention = parsed
	}

	// Wire the raster pipeline
	store, err := satraster.NewFileStore(dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open raster store")
	}

	rasterService := satraster.NewService(satraster.ServiceConfig{
		Provider:  tempo.NewClient(tempo.ClientConfig{BaseURL: tempoBaseURL}),
		Store:     store,
		Logger:    log,
		Retention: retention,
	})

	job := worker.NewExtractJob(worker.ExtractJobConfig{
		Config: worker.ExtractConfig{Interval: interval},
		Logger: log,
		Raster: rasterService,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Health and metrics endpoints for the platform's probes
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(job.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Extraction loop: one run at startup, then on every tick.
	go func() {
		job.Run(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job.Run(ctx)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("worker stopped")
}
