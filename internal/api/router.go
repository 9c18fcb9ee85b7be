// Package api provides the HTTP API for airscope.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airscope/airscope/internal/aggregation"
	"github.com/airscope/airscope/internal/api/handler"
	"github.com/airscope/airscope/internal/api/middleware"
	"github.com/airscope/airscope/internal/satraster"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	BuildTime          string
	Logger             zerolog.Logger
	ServiceName        string
	Metrics            *middleware.Metrics
	EngineMetrics      *middleware.EngineMetrics
	AggregationService *aggregation.Service
	AirQualityProvider handler.AirQualityProvider
	RasterService      *satraster.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airscope-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	airQualityHandler := handler.NewAirQualityHandler(cfg.AggregationService, cfg.AirQualityProvider, cfg.EngineMetrics)

	// Rate limit tiers: the aggregate endpoint fans out to the upstream
	// catalog, so it gets the stricter budget.
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/air-quality", func(r chi.Router) {
			r.With(expensiveRateLimit).Get("/locations/aggregate", airQualityHandler.Aggregate)
			r.With(standardRateLimit).Get("/locations", airQualityHandler.ListLocations)
			r.With(standardRateLimit).Get("/latest", airQualityHandler.Latest)
		})

		if cfg.RasterService != nil {
			rasterHandler := handler.NewRasterHandler(cfg.RasterService)
			r.With(standardRateLimit).Get("/raster/{parameter}", rasterHandler.Points)
		}
	})

	return r
}
