package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airscope/airscope/internal/satraster"
)

// ExtractJob downloads and stores satellite raster extracts on a schedule.
type ExtractJob struct {
	config ExtractConfig
	logger zerolog.Logger
	raster *satraster.Service

	metrics *ExtractMetrics
}

// ExtractMetrics tracks extraction job statistics.
type ExtractMetrics struct {
	mu sync.RWMutex

	TotalRuns          int64
	SuccessfulExtracts int64
	FailedExtracts     int64
	FilesRemoved       int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// ExtractJobConfig holds configuration for creating an ExtractJob.
type ExtractJobConfig struct {
	Config ExtractConfig
	Logger zerolog.Logger
	Raster *satraster.Service
}

// NewExtractJob creates a new extraction job processor.
func NewExtractJob(cfg ExtractJobConfig) *ExtractJob {
	return &ExtractJob{
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		raster:  cfg.Raster,
		metrics: &ExtractMetrics{},
	}
}

// ExtractResult contains the result of one extraction run.
type ExtractResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Successful   int
	Failed       int
	FilesRemoved int
	Errors       []ExtractError
}

// ExtractError represents an error during extraction.
type ExtractError struct {
	Parameter satraster.Parameter
	Error     string
}

// Run executes one extraction run over all configured parameters, then
// prunes stored files past the retention window.
func (j *ExtractJob) Run(ctx context.Context) *ExtractResult {
	startTime := time.Now()
	result := &ExtractResult{StartTime: startTime}

	j.logger.Info().
		Int("parameters", len(j.config.Parameters)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting raster extraction run")

	paramsChan := make(chan satraster.Parameter, len(j.config.Parameters))
	resultsChan := make(chan extractOutcome, len(j.config.Parameters))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.extractWorker(ctx, paramsChan, resultsChan)
		}()
	}

	for _, p := range j.config.Parameters {
		paramsChan <- p
	}
	close(paramsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for outcome := range resultsChan {
		if outcome.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, ExtractError{
			Parameter: outcome.param,
			Error:     outcome.err.Error(),
		})
	}

	removed, err := j.raster.Cleanup()
	if err != nil {
		j.logger.Error().Err(err).Msg("raster cleanup failed")
	}
	result.FilesRemoved = removed

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("files_removed", result.FilesRemoved).
		Msg("raster extraction run completed")

	return result
}

type extractOutcome struct {
	param satraster.Parameter
	err   error
}

func (j *ExtractJob) extractWorker(ctx context.Context, params <-chan satraster.Parameter, results chan<- extractOutcome) {
	for param := range params {
		select {
		case <-ctx.Done():
			results <- extractOutcome{param: param, err: ctx.Err()}
		default:
			results <- extractOutcome{param: param, err: j.extractOne(ctx, param)}
		}
	}
}

func (j *ExtractJob) extractOne(ctx context.Context, param satraster.Parameter) error {
	extractCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if err := j.raster.Refresh(extractCtx, param); err != nil {
		j.logger.Error().
			Err(err).
			Str("parameter", string(param)).
			Msg("raster extract failed")
		return err
	}
	return nil
}

func (j *ExtractJob) updateMetrics(result *ExtractResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulExtracts += int64(result.Successful)
	j.metrics.FailedExtracts += int64(result.Failed)
	j.metrics.FilesRemoved += int64(result.FilesRemoved)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *ExtractJob) GetMetrics() ExtractMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return ExtractMetrics{
		TotalRuns:          j.metrics.TotalRuns,
		SuccessfulExtracts: j.metrics.SuccessfulExtracts,
		FailedExtracts:     j.metrics.FailedExtracts,
		FilesRemoved:       j.metrics.FilesRemoved,
		LastRunAt:          j.metrics.LastRunAt,
		LastRunDuration:    j.metrics.LastRunDuration,
		TotalDuration:      j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ExtractJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":          m.TotalRuns,
		"successful_extracts": m.SuccessfulExtracts,
		"failed_extracts":     m.FailedExtracts,
		"files_removed":       m.FilesRemoved,
		"last_run_at":         m.LastRunAt,
		"last_run_duration":   m.LastRunDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
