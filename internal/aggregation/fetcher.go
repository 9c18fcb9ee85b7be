package aggregation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Provider is the upstream catalog and measurement source.
type Provider interface {
	// FetchLocations returns candidate locations inside the bbox, in
	// catalog order, up to limit.
	FetchLocations(ctx context.Context, bbox BoundingBox, limit int) ([]Location, error)

	// FetchLocation resolves current metadata for one location.
	// Returns ErrLocationUnavailable if it no longer exists upstream.
	FetchLocation(ctx context.Context, id int) (*Location, error)

	// FetchSensors lists the location's sensors, already filtered to the
	// monitored parameter set.
	FetchSensors(ctx context.Context, locationID int) ([]Sensor, error)

	// FetchLatestReading returns the latest reading for a sensor, or
	// (nil, nil) when the sensor has no measurements.
	FetchLatestReading(ctx context.Context, sensor Sensor) (*Reading, error)
}

// Fetcher resolves one sampled location into a LocationBundle.
type Fetcher struct {
	provider Provider
	logger   zerolog.Logger
}

// NewFetcher creates a measurement fetcher backed by the given provider.
func NewFetcher(provider Provider, logger zerolog.Logger) *Fetcher {
	return &Fetcher{provider: provider, logger: logger}
}

// FetchBundle retrieves metadata, the sensor list and the latest reading per
// mapped sensor for one location. Location-level failures (metadata, sensor
// list, timeout) abort the bundle; per-sensor failures only omit that
// parameter.
func (f *Fetcher) FetchBundle(ctx context.Context, loc Location) (*LocationBundle, error) {
	meta, err := f.provider.FetchLocation(ctx, loc.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch location %d: %w", loc.ID, err)
	}

	sensors, err := f.provider.FetchSensors(ctx, loc.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch sensors for location %d: %w", loc.ID, err)
	}

	bundle := &LocationBundle{
		Location: *meta,
		Readings: make(map[Parameter]Reading, len(sensors)),
	}

	for _, sensor := range sensors {
		if _, ok := bundle.Readings[sensor.Parameter]; ok {
			// One reading per parameter; the first resolved sensor wins.
			continue
		}

		reading, err := f.provider.FetchLatestReading(ctx, sensor)
		if err != nil {
			if ctx.Err() != nil {
				// The location's deadline expired; abort the bundle so the
				// governor counts it as a failure instead of returning a
				// silently thinned result.
				return nil, fmt.Errorf("fetch reading for sensor %d: %w", sensor.ID, err)
			}
			f.logger.Debug().
				Err(err).
				Int("location_id", loc.ID).
				Int("sensor_id", sensor.ID).
				Str("parameter", string(sensor.Parameter)).
				Msg("skipping sensor after fetch failure")
			continue
		}
		if reading == nil {
			continue
		}

		bundle.Readings[sensor.Parameter] = *reading
	}

	return bundle, nil
}
