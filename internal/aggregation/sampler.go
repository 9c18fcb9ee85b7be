package aggregation

import (
	"fmt"
	"math"
	"math/rand"
)

// Strategy selects how candidates are reduced to the processing set.
type Strategy string

const (
	// StrategyDistributed spreads picks across a grid over the bbox.
	StrategyDistributed Strategy = "distributed"

	// StrategyRandom picks uniformly without replacement.
	StrategyRandom Strategy = "random"

	// StrategyFirst keeps the first k candidates in catalog order.
	StrategyFirst Strategy = "first"
)

// ParseStrategy validates a wire-format strategy value.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyDistributed, StrategyRandom, StrategyFirst:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Sampler reduces a candidate list to a target-size subset.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler creates a sampler seeded for reproducible random picks.
// Pass a fixed seed in tests; production callers seed from the clock.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Select returns min(k, len(candidates)) locations with distinct ids,
// chosen by the given strategy. k <= 0 is an input error.
func (s *Sampler) Select(bbox BoundingBox, candidates []Location, k int, strategy Strategy) ([]Location, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleSize, k)
	}

	if k > len(candidates) {
		k = len(candidates)
	}

	switch strategy {
	case StrategyFirst:
		picked := make([]Location, k)
		copy(picked, candidates[:k])
		return picked, nil
	case StrategyRandom:
		return s.sampleWithoutReplacement(candidates, k), nil
	case StrategyDistributed:
		return s.selectDistributed(bbox, candidates, k), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// selectDistributed lays a cellsPerSide x cellsPerSide grid over the bbox and
// takes one representative per non-empty cell in row-major order before
// falling back to random fill. The representative is the first candidate
// seen for the cell in catalog order, which keeps the grid phase
// deterministic for a fixed catalog response.
func (s *Sampler) selectDistributed(bbox BoundingBox, candidates []Location, k int) []Location {
	cellsPerSide := int(math.Ceil(math.Sqrt(float64(k))))

	lonSpan := bbox.MaxLon - bbox.MinLon
	latSpan := bbox.MaxLat - bbox.MinLat

	type cellKey struct{ row, col int }
	cells := make(map[cellKey][]int)
	for i, c := range candidates {
		row := gridIndex(c.Lat, bbox.MinLat, latSpan, cellsPerSide)
		col := gridIndex(c.Lon, bbox.MinLon, lonSpan, cellsPerSide)
		key := cellKey{row, col}
		cells[key] = append(cells[key], i)
	}

	picked := make([]Location, 0, k)
	taken := make(map[int]bool, k)

	for row := 0; row < cellsPerSide && len(picked) < k; row++ {
		for col := 0; col < cellsPerSide && len(picked) < k; col++ {
			indices, ok := cells[cellKey{row, col}]
			if !ok {
				continue
			}
			idx := indices[0]
			picked = append(picked, candidates[idx])
			taken[idx] = true
		}
	}

	if len(picked) < k {
		pool := make([]Location, 0, len(candidates)-len(picked))
		for i, c := range candidates {
			if !taken[i] {
				pool = append(pool, c)
			}
		}
		fill := s.sampleWithoutReplacement(pool, k-len(picked))
		picked = append(picked, fill...)
	}

	return picked
}

// gridIndex normalizes v into [0,1) over the axis span and maps it to a
// cell index. Candidates on the max edge clamp into the last cell.
func gridIndex(v, min, span float64, cells int) int {
	if span <= 0 {
		return 0
	}
	idx := int((v - min) / span * float64(cells))
	if idx < 0 {
		return 0
	}
	if idx >= cells {
		return cells - 1
	}
	return idx
}

// sampleWithoutReplacement picks n locations uniformly via partial
// Fisher-Yates over a copy of the pool.
func (s *Sampler) sampleWithoutReplacement(pool []Location, n int) []Location {
	if n > len(pool) {
		n = len(pool)
	}
	shuffled := make([]Location, len(pool))
	copy(shuffled, pool)
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n]
}
