// Package worker provides the scheduled satellite raster extraction job.
package worker

import (
	"time"

	"github.com/airscope/airscope/internal/satraster"
)

// ExtractConfig holds configuration for the raster extraction job.
type ExtractConfig struct {
	// Parameters are the satellite parameters to extract each run.
	// If empty, uses all supported parameters.
	Parameters []satraster.Parameter

	// Concurrency is the number of concurrent extract downloads.
	// Default: 2
	Concurrency int

	// Timeout is the timeout for each parameter's download.
	// Default: 120 seconds (granule extracts are large)
	Timeout time.Duration

	// Interval is the pause between runs. Default: 30 minutes
	Interval time.Duration
}

// DefaultExtractConfig returns the default extraction configuration.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		Parameters:  satraster.Parameters(),
		Concurrency: 2,
		Timeout:     120 * time.Second,
		Interval:    30 * time.Minute,
	}
}

// withDefaults fills zero values with the defaults.
func (c ExtractConfig) withDefaults() ExtractConfig {
	def := DefaultExtractConfig()
	if len(c.Parameters) == 0 {
		c.Parameters = def.Parameters
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}
