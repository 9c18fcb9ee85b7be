package aggregation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GovernorConfig bounds the measurement fan-out.
type GovernorConfig struct {
	// MaxConcurrent is the number of locations in flight at once.
	// A location holds its slot for all of its sub-fetches. Default: 10.
	MaxConcurrent int

	// PerCallTimeout bounds one location's whole fetch. Default: 30s.
	PerCallTimeout time.Duration

	// Logger for fan-out progress.
	Logger zerolog.Logger
}

// Governor fans a Fetcher out across a sampled location set under a
// concurrency cap, isolating per-location failures.
type Governor struct {
	fetcher        *Fetcher
	maxConcurrent  int
	perCallTimeout time.Duration
	logger         zerolog.Logger
}

// NewGovernor creates a governor around the given fetcher.
func NewGovernor(fetcher *Fetcher, cfg GovernorConfig) *Governor {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	perCallTimeout := cfg.PerCallTimeout
	if perCallTimeout == 0 {
		perCallTimeout = 30 * time.Second
	}

	return &Governor{
		fetcher:        fetcher,
		maxConcurrent:  maxConcurrent,
		perCallTimeout: perCallTimeout,
		logger:         cfg.Logger,
	}
}

// Run launches one fetch task per sampled location and returns once every
// task has settled. A task's failure becomes a FailureRecord in its slot and
// never cancels siblings. Outcomes are returned in submission order, so the
// result is deterministic for a fixed sampled set and upstream behavior.
func (g *Governor) Run(ctx context.Context, sampled []Location) ([]Outcome, time.Duration) {
	start := time.Now()
	outcomes := make([]Outcome, len(sampled))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := g.maxConcurrent
	if workers > len(sampled) {
		workers = len(sampled)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = g.fetchOne(ctx, sampled[i])
			}
		}()
	}

	for i := range sampled {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)

	g.logger.Debug().
		Int("locations", len(sampled)).
		Int("max_concurrent", g.maxConcurrent).
		Dur("elapsed", elapsed).
		Msg("measurement fan-out settled")

	return outcomes, elapsed
}

// fetchOne runs a single location's fetch under its own timeout and converts
// any error into a FailureRecord.
func (g *Governor) fetchOne(ctx context.Context, loc Location) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, g.perCallTimeout)
	defer cancel()

	bundle, err := g.fetcher.FetchBundle(callCtx, loc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrUpstreamTimeout
		}
		g.logger.Warn().
			Err(err).
			Int("location_id", loc.ID).
			Str("location", loc.Name).
			Msg("location fetch failed")
		return Outcome{Failure: &FailureRecord{Location: loc, Err: err}}
	}

	return Outcome{Bundle: bundle}
}
