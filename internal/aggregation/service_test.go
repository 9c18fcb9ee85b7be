package aggregation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var coloradoBBox = BoundingBox{MinLon: -109.05, MinLat: 37, MaxLon: -102.04, MaxLat: 41}

// catalogOf spreads n candidates across the Colorado bbox.
func catalogOf(n int) []Location {
	locs := make([]Location, n)
	for i := range locs {
		frac := float64(i) / float64(n)
		locs[i] = Location{
			ID:  100 + i,
			Lat: 37.5 + frac*3,
			Lon: -108.5 + frac*6,
		}
	}
	return locs
}

func newTestService(provider Provider, seed int64) *Service {
	return NewService(ServiceConfig{
		Provider:    provider,
		Logger:      zerolog.Nop(),
		SamplerSeed: seed,
		Governor: GovernorConfig{
			MaxConcurrent:  4,
			PerCallTimeout: time.Second,
		},
	})
}

func TestService_Aggregate_FullRun(t *testing.T) {
	catalog := catalogOf(10)
	provider := &stubProvider{
		fetchLocations: func(_ context.Context, bbox BoundingBox, limit int) ([]Location, error) {
			assert.Equal(t, coloradoBBox, bbox)
			assert.Equal(t, 100, limit)
			return catalog, nil
		},
		fetchSensors: func(_ context.Context, locationID int) ([]Sensor, error) {
			return []Sensor{{ID: locationID * 10, Parameter: ParameterPM25}}, nil
		},
	}

	service := newTestService(provider, 42)
	result, err := service.Aggregate(context.Background(), AggregateRequest{
		BBox:       coloradoBBox,
		Limit:      100,
		MaxProcess: 4,
		Strategy:   StrategyDistributed,
	})
	require.NoError(t, err)

	require.Len(t, result.Bundles, 4)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 4, result.Performance.SuccessCount)

	seen := make(map[int]bool)
	for _, b := range result.Bundles {
		assert.False(t, seen[b.Location.ID], "duplicate location %d", b.Location.ID)
		seen[b.Location.ID] = true
		assert.Contains(t, b.Readings, ParameterPM25)
	}

	// Coverage covers the whole parameter set, including absent ones.
	require.Len(t, result.Coverage, len(Parameters()))
	assert.Equal(t, 100.0, result.Coverage[ParameterPM25].Percentage)
	assert.Equal(t, 0.0, result.Coverage[ParameterNO2].Percentage)
}

func TestService_Aggregate_InputErrorsSkipUpstream(t *testing.T) {
	var calls int64
	provider := &stubProvider{
		fetchLocations: func(_ context.Context, _ BoundingBox, _ int) ([]Location, error) {
			atomic.AddInt64(&calls, 1)
			return nil, nil
		},
	}
	service := newTestService(provider, 1)

	tests := []struct {
		name    string
		req     AggregateRequest
		wantErr error
	}{
		{
			name: "zero max process",
			req: AggregateRequest{
				BBox: coloradoBBox, Limit: 100, MaxProcess: 0, Strategy: StrategyDistributed,
			},
			wantErr: ErrInvalidSampleSize,
		},
		{
			name: "degenerate bbox",
			req: AggregateRequest{
				BBox:  BoundingBox{MinLon: 5, MinLat: 52, MaxLon: 5, MaxLat: 53},
				Limit: 100, MaxProcess: 5, Strategy: StrategyDistributed,
			},
			wantErr: ErrInvalidBoundingBox,
		},
		{
			name: "bad strategy",
			req: AggregateRequest{
				BBox: coloradoBBox, Limit: 100, MaxProcess: 5, Strategy: "closest",
			},
			wantErr: ErrUnknownStrategy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Aggregate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Input errors must be rejected before any upstream call.
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}

func TestService_Aggregate_CatalogFailureIsRequestFatal(t *testing.T) {
	provider := &stubProvider{
		fetchLocations: func(_ context.Context, _ BoundingBox, _ int) ([]Location, error) {
			return nil, ErrUpstreamUnavailable
		},
	}

	service := newTestService(provider, 1)
	_, err := service.Aggregate(context.Background(), AggregateRequest{
		BBox: coloradoBBox, Limit: 100, MaxProcess: 5, Strategy: StrategyRandom,
	})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestService_Aggregate_LocationFailureIsIsolated(t *testing.T) {
	catalog := catalogOf(5)
	provider := &stubProvider{
		fetchLocations: func(_ context.Context, _ BoundingBox, _ int) ([]Location, error) {
			return catalog, nil
		},
		fetchLocation: func(ctx context.Context, id int) (*Location, error) {
			if id == catalog[2].ID {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &Location{ID: id}, nil
		},
	}

	service := NewService(ServiceConfig{
		Provider:    provider,
		Logger:      zerolog.Nop(),
		SamplerSeed: 7,
		Governor: GovernorConfig{
			MaxConcurrent:  5,
			PerCallTimeout: 30 * time.Millisecond,
		},
	})

	result, err := service.Aggregate(context.Background(), AggregateRequest{
		BBox: coloradoBBox, Limit: 100, MaxProcess: 5, Strategy: StrategyFirst,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Performance.SuccessCount)
	assert.Equal(t, 1, result.Performance.FailureCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, catalog[2].ID, result.Failures[0].Location.ID)
	assert.ErrorIs(t, result.Failures[0].Err, ErrUpstreamTimeout)
}

func TestService_Aggregate_EmptyCatalog(t *testing.T) {
	provider := &stubProvider{
		fetchLocations: func(_ context.Context, _ BoundingBox, _ int) ([]Location, error) {
			return []Location{}, nil
		},
	}

	service := newTestService(provider, 1)
	result, err := service.Aggregate(context.Background(), AggregateRequest{
		BBox: coloradoBBox, Limit: 100, MaxProcess: 5, Strategy: StrategyDistributed,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Bundles)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Coverage, len(Parameters()))
}
