package aggregation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplerBBox = BoundingBox{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10}

// gridCandidates lays candidates on an n-by-n grid inside samplerBBox.
func gridCandidates(n int) []Location {
	locs := make([]Location, 0, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			locs = append(locs, Location{
				ID:   row*n + col + 1,
				Name: fmt.Sprintf("station-%d-%d", row, col),
				Lat:  float64(row)*10/float64(n) + 0.5,
				Lon:  float64(col)*10/float64(n) + 0.5,
			})
		}
	}
	return locs
}

func uniqueIDs(t *testing.T, locs []Location) map[int]bool {
	t.Helper()
	ids := make(map[int]bool, len(locs))
	for _, loc := range locs {
		assert.False(t, ids[loc.ID], "duplicate location id %d", loc.ID)
		ids[loc.ID] = true
	}
	return ids
}

func TestSampler_Select_RejectsBadInput(t *testing.T) {
	s := NewSampler(1)
	candidates := gridCandidates(3)

	_, err := s.Select(samplerBBox, candidates, 0, StrategyDistributed)
	assert.ErrorIs(t, err, ErrInvalidSampleSize)

	_, err = s.Select(samplerBBox, candidates, -1, StrategyRandom)
	assert.ErrorIs(t, err, ErrInvalidSampleSize)

	_, err = s.Select(samplerBBox, candidates, 3, "spiral")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSampler_Select_CapsAtCandidateCount(t *testing.T) {
	candidates := gridCandidates(2) // 4 candidates

	for _, strategy := range []Strategy{StrategyDistributed, StrategyRandom, StrategyFirst} {
		t.Run(string(strategy), func(t *testing.T) {
			s := NewSampler(42)
			picked, err := s.Select(samplerBBox, candidates, 50, strategy)
			require.NoError(t, err)
			assert.Len(t, picked, 4)
			uniqueIDs(t, picked)
		})
	}
}

func TestSampler_Select_EmptyCandidates(t *testing.T) {
	s := NewSampler(1)
	picked, err := s.Select(samplerBBox, nil, 5, StrategyDistributed)
	require.NoError(t, err)
	assert.Empty(t, picked)
}

func TestSampler_First_KeepsCatalogOrder(t *testing.T) {
	s := NewSampler(7)
	candidates := gridCandidates(4)

	picked, err := s.Select(samplerBBox, candidates, 5, StrategyFirst)
	require.NoError(t, err)
	require.Len(t, picked, 5)
	for i, loc := range picked {
		assert.Equal(t, candidates[i].ID, loc.ID)
	}
}

func TestSampler_Random_DistinctAndReproducible(t *testing.T) {
	candidates := gridCandidates(5)

	first, err := NewSampler(99).Select(samplerBBox, candidates, 8, StrategyRandom)
	require.NoError(t, err)
	require.Len(t, first, 8)
	uniqueIDs(t, first)

	// Same seed, same picks.
	second, err := NewSampler(99).Select(samplerBBox, candidates, 8, StrategyRandom)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSampler_Distributed_SpreadsAcrossGrid(t *testing.T) {
	// 4 candidates in the 4 quadrants; k=4 must pick one per quadrant.
	candidates := []Location{
		{ID: 1, Lat: 2.5, Lon: 2.5},
		{ID: 2, Lat: 2.5, Lon: 7.5},
		{ID: 3, Lat: 7.5, Lon: 2.5},
		{ID: 4, Lat: 7.5, Lon: 7.5},
	}

	s := NewSampler(1)
	picked, err := s.Select(samplerBBox, candidates, 4, StrategyDistributed)
	require.NoError(t, err)
	require.Len(t, picked, 4)

	ids := uniqueIDs(t, picked)
	for id := 1; id <= 4; id++ {
		assert.True(t, ids[id], "quadrant candidate %d missing", id)
	}
}

func TestSampler_Distributed_FirstInCellWins(t *testing.T) {
	// Two candidates share every cell; catalog order breaks the tie.
	candidates := []Location{
		{ID: 1, Lat: 2.5, Lon: 2.5},
		{ID: 2, Lat: 2.6, Lon: 2.6},
	}

	s := NewSampler(1)
	picked, err := s.Select(samplerBBox, candidates, 1, StrategyDistributed)
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, 1, picked[0].ID)
}

func TestSampler_Distributed_FillsFromUnpicked(t *testing.T) {
	// 3 candidates crowd one quadrant, 1 sits in another. k=4 needs the
	// grid pass plus a random fill from the remaining pool.
	candidates := []Location{
		{ID: 1, Lat: 1.0, Lon: 1.0},
		{ID: 2, Lat: 1.5, Lon: 1.5},
		{ID: 3, Lat: 2.0, Lon: 2.0},
		{ID: 4, Lat: 8.0, Lon: 8.0},
	}

	s := NewSampler(5)
	picked, err := s.Select(samplerBBox, candidates, 4, StrategyDistributed)
	require.NoError(t, err)
	require.Len(t, picked, 4)
	uniqueIDs(t, picked)
}

func TestSampler_Distributed_PointsOnBBoxEdge(t *testing.T) {
	// Candidates exactly on the max edge must clamp into the last cell
	// instead of indexing out of range.
	candidates := []Location{
		{ID: 1, Lat: 10, Lon: 10},
		{ID: 2, Lat: 0, Lon: 0},
		{ID: 3, Lat: 10, Lon: 0},
	}

	s := NewSampler(3)
	picked, err := s.Select(samplerBBox, candidates, 3, StrategyDistributed)
	require.NoError(t, err)
	assert.Len(t, picked, 3)
}
