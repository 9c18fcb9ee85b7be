package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AggregateRequest describes one bounded-area aggregation.
type AggregateRequest struct {
	// BBox is the area to aggregate.
	BBox BoundingBox

	// Limit caps how many candidates are requested from the catalog.
	// Must be within [1, MaxCatalogLimit].
	Limit int

	// MaxProcess is the sampling target k. Must be within [1, Limit].
	MaxProcess int

	// Strategy selects the sampling strategy.
	Strategy Strategy
}

// Validate rejects malformed requests before any upstream call.
func (r AggregateRequest) Validate() error {
	if err := r.BBox.Validate(); err != nil {
		return err
	}
	if r.Limit < 1 || r.Limit > MaxCatalogLimit {
		return fmt.Errorf("%w: limit must be within [1, %d], got %d", ErrInvalidLimit, MaxCatalogLimit, r.Limit)
	}
	if r.MaxProcess <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleSize, r.MaxProcess)
	}
	if r.MaxProcess > r.Limit {
		return fmt.Errorf("%w: max_process %d exceeds limit %d", ErrInvalidLimit, r.MaxProcess, r.Limit)
	}
	if _, err := ParseStrategy(string(r.Strategy)); err != nil {
		return err
	}
	return nil
}

// ServiceConfig holds configuration for the aggregation service.
type ServiceConfig struct {
	// Provider is the upstream catalog and measurement source.
	Provider Provider

	// Logger for aggregation runs.
	Logger zerolog.Logger

	// Governor bounds the fan-out. Zero values use the defaults.
	Governor GovernorConfig

	// SamplerSeed seeds the sampler's RNG; 0 seeds from the clock.
	SamplerSeed int64
}

// Service runs bounded-area aggregations. Every result is computed fresh
// per request; nothing is cached or persisted.
type Service struct {
	provider Provider
	sampler  *Sampler
	governor *Governor
	logger   zerolog.Logger
}

// NewService creates an aggregation service.
func NewService(cfg ServiceConfig) *Service {
	seed := cfg.SamplerSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	governorCfg := cfg.Governor
	governorCfg.Logger = cfg.Logger

	fetcher := NewFetcher(cfg.Provider, cfg.Logger)

	return &Service{
		provider: cfg.Provider,
		sampler:  NewSampler(seed),
		governor: NewGovernor(fetcher, governorCfg),
		logger:   cfg.Logger,
	}
}

// Aggregate discovers candidates in the bbox, samples them, fans out the
// measurement fetches and reports the consolidated result. Input and
// catalog-stage errors are request-fatal; per-location failures during
// fan-out are isolated and only visible in the result's failure count.
func (s *Service) Aggregate(ctx context.Context, req AggregateRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.provider.FetchLocations(ctx, req.BBox, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	sampled, err := s.sampler.Select(req.BBox, candidates, req.MaxProcess, req.Strategy)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("bbox", req.BBox.String()).
		Str("strategy", string(req.Strategy)).
		Int("candidates", len(candidates)).
		Int("sampled", len(sampled)).
		Msg("starting bounded-area aggregation")

	outcomes, elapsed := s.governor.Run(ctx, sampled)
	result := BuildResult(outcomes, elapsed)

	s.logger.Info().
		Int("successful", result.Performance.SuccessCount).
		Int("failed", result.Performance.FailureCount).
		Dur("elapsed", elapsed).
		Msg("aggregation completed")

	return result, nil
}
