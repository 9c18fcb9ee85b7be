package aggregation

import (
	"math"
	"time"
)

// BuildResult merges settled outcomes into the final aggregation result and
// computes throughput and per-parameter coverage telemetry. Bundle order
// follows the settled outcome order.
func BuildResult(outcomes []Outcome, elapsed time.Duration) *Result {
	result := &Result{
		Bundles:  make([]LocationBundle, 0, len(outcomes)),
		Coverage: make(map[Parameter]Coverage, len(Parameters())),
		Elapsed:  elapsed,
	}

	for _, o := range outcomes {
		switch {
		case o.Bundle != nil:
			result.Bundles = append(result.Bundles, *o.Bundle)
		case o.Failure != nil:
			result.Failures = append(result.Failures, *o.Failure)
		}
	}

	successCount := len(result.Bundles)
	failureCount := len(result.Failures)
	seconds := elapsed.Seconds()

	perf := Performance{
		SuccessCount:        successCount,
		FailureCount:        failureCount,
		TotalElapsedSeconds: round2(seconds),
	}
	if seconds > 0 && successCount > 0 {
		perf.LocationsPerSecond = round2(float64(successCount) / seconds)
	}
	perf.AvgTimePerLocationMs = round2(seconds * 1000 / math.Max(float64(successCount), 1))
	result.Performance = perf

	for _, param := range Parameters() {
		available := 0
		for _, b := range result.Bundles {
			if _, ok := b.Readings[param]; ok {
				available++
			}
		}
		pct := 0.0
		if successCount > 0 {
			pct = round1(float64(available) / float64(successCount) * 100)
		}
		result.Coverage[param] = Coverage{AvailableAt: available, Percentage: pct}
	}

	return result
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
