package satraster

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/airscope/airscope/internal/aggregation"
)

// RasterProvider downloads one parameter's current raster extract.
type RasterProvider interface {
	FetchRaster(ctx context.Context, param Parameter) (*RasterSet, error)
}

// ServiceConfig holds configuration for the raster service.
type ServiceConfig struct {
	// Provider is the satellite raster source.
	Provider RasterProvider

	// Store persists ingested raster sets.
	Store *FileStore

	// Logger for ingestion runs.
	Logger zerolog.Logger

	// Retention is how long stored files are kept (default: 7 days).
	Retention time.Duration
}

// Service runs raster ingestion and serves the bbox-filter read path.
type Service struct {
	provider  RasterProvider
	store     *FileStore
	logger    zerolog.Logger
	retention time.Duration
}

// NewService creates a raster service.
func NewService(cfg ServiceConfig) *Service {
	retention := cfg.Retention
	if retention == 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Service{
		provider:  cfg.Provider,
		store:     cfg.Store,
		logger:    cfg.Logger,
		retention: retention,
	}
}

// Refresh downloads and stores the current extract for one parameter.
func (s *Service) Refresh(ctx context.Context, param Parameter) error {
	set, err := s.provider.FetchRaster(ctx, param)
	if err != nil {
		return fmt.Errorf("fetch raster %s: %w", param, err)
	}
	if set.FetchedAt.IsZero() {
		set.FetchedAt = time.Now().UTC()
	}

	if err := s.store.Save(set); err != nil {
		return fmt.Errorf("store raster %s: %w", param, err)
	}

	s.logger.Info().
		Str("parameter", string(param)).
		Int("points", len(set.Points)).
		Msg("raster extract stored")
	return nil
}

// Cleanup removes stored files older than the retention window.
func (s *Service) Cleanup() (int, error) {
	removed, err := s.store.Cleanup(time.Now().Add(-s.retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("old raster files cleaned up")
	}
	return removed, nil
}

// PointsInBBox returns the latest stored points for the parameter that fall
// inside the bbox, along with the set's fetch time.
func (s *Service) PointsInBBox(param Parameter, bbox aggregation.BoundingBox) ([]GridPoint, time.Time, error) {
	if err := bbox.Validate(); err != nil {
		return nil, time.Time{}, err
	}

	set, err := s.store.Latest(param)
	if err != nil {
		return nil, time.Time{}, err
	}

	points := make([]GridPoint, 0, len(set.Points))
	for _, p := range set.Points {
		if p.Lon >= bbox.MinLon && p.Lon <= bbox.MaxLon && p.Lat >= bbox.MinLat && p.Lat <= bbox.MaxLat {
			points = append(points, p)
		}
	}
	return points, set.FetchedAt, nil
}
