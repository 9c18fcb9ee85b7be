package models

import (
	"time"

	"github.com/airscope/airscope/internal/aggregation"
)

// Coordinates is a geographic point in a wire response.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationSummary is one monitoring location's metadata.
type LocationSummary struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Locality    string      `json:"locality,omitempty"`
	Timezone    string      `json:"timezone,omitempty"`
	Country     string      `json:"country,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// Measurement is one parameter's latest reading at a location.
type Measurement struct {
	Value         float64 `json:"value"`
	Unit          string  `json:"unit"`
	DatetimeUTC   string  `json:"datetime_utc"`
	DatetimeLocal string  `json:"datetime_local,omitempty"`
}

// LocationResult is one successfully processed location with its readings.
type LocationResult struct {
	LocationSummary
	Measurements map[string]Measurement `json:"measurements"`
}

// LocationFailure records one location that could not be processed.
type LocationFailure struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Performance summarizes one aggregation run.
type Performance struct {
	TotalTimeSeconds         float64 `json:"total_time_seconds"`
	LocationsPerSecond       float64 `json:"locations_per_second"`
	AverageTimePerLocationMs float64 `json:"average_time_per_location_ms"`
	SuccessfulLocations      int     `json:"successful_locations"`
	FailedLocations          int     `json:"failed_locations"`
}

// ParameterCoverage reports how many processed locations carried one parameter.
type ParameterCoverage struct {
	AvailableAt int     `json:"available_at"`
	Percentage  float64 `json:"percentage"`
}

// AggregateResponse is the wire shape of a bounded-area aggregation run.
type AggregateResponse struct {
	Found             int                          `json:"found"`
	Locations         []LocationResult             `json:"locations"`
	Failures          []LocationFailure            `json:"failures"`
	Performance       Performance                  `json:"performance"`
	ParameterCoverage map[string]ParameterCoverage `json:"parameter_coverage"`
}

// LocationsResponse is the catalog listing wire shape.
type LocationsResponse struct {
	Found     int               `json:"found"`
	Locations []LocationSummary `json:"locations"`
}

// LatestResponse is the thin per-parameter latest-readings wire shape.
type LatestResponse struct {
	Parameter string        `json:"parameter"`
	Found     int           `json:"found"`
	Readings  []Measurement `json:"readings"`
}

// NewLocationSummary converts an engine location to its wire shape.
func NewLocationSummary(loc aggregation.Location) LocationSummary {
	return LocationSummary{
		ID:       loc.ID,
		Name:     loc.Name,
		Locality: loc.Locality,
		Timezone: loc.Timezone,
		Country:  loc.Country,
		Coordinates: Coordinates{
			Lat: loc.Lat,
			Lon: loc.Lon,
		},
	}
}

// NewMeasurement converts an engine reading to its wire shape.
func NewMeasurement(r aggregation.Reading) Measurement {
	return Measurement{
		Value:         r.Value,
		Unit:          r.Unit,
		DatetimeUTC:   r.UTC.Format(time.RFC3339),
		DatetimeLocal: r.Local,
	}
}

// NewAggregateResponse converts an engine result to its wire shape.
func NewAggregateResponse(result *aggregation.Result) *AggregateResponse {
	locations := make([]LocationResult, 0, len(result.Bundles))
	for _, bundle := range result.Bundles {
		measurements := make(map[string]Measurement, len(bundle.Readings))
		for param, reading := range bundle.Readings {
			measurements[string(param)] = NewMeasurement(reading)
		}
		locations = append(locations, LocationResult{
			LocationSummary: NewLocationSummary(bundle.Location),
			Measurements:    measurements,
		})
	}

	failures := make([]LocationFailure, 0, len(result.Failures))
	for _, failure := range result.Failures {
		failures = append(failures, LocationFailure{
			ID:    failure.Location.ID,
			Name:  failure.Location.Name,
			Error: failure.Err.Error(),
		})
	}

	coverage := make(map[string]ParameterCoverage, len(result.Coverage))
	for param, cov := range result.Coverage {
		coverage[string(param)] = ParameterCoverage{
			AvailableAt: cov.AvailableAt,
			Percentage:  cov.Percentage,
		}
	}

	return &AggregateResponse{
		Found:     len(locations),
		Locations: locations,
		Failures:  failures,
		Performance: Performance{
			TotalTimeSeconds:         result.Performance.TotalElapsedSeconds,
			LocationsPerSecond:       result.Performance.LocationsPerSecond,
			AverageTimePerLocationMs: result.Performance.AvgTimePerLocationMs,
			SuccessfulLocations:      result.Performance.SuccessCount,
			FailedLocations:          result.Performance.FailureCount,
		},
		ParameterCoverage: coverage,
	}
}

// NewLocationsResponse converts a catalog listing to its wire shape.
func NewLocationsResponse(locs []aggregation.Location) *LocationsResponse {
	summaries := make([]LocationSummary, 0, len(locs))
	for _, loc := range locs {
		summaries = append(summaries, NewLocationSummary(loc))
	}
	return &LocationsResponse{
		Found:     len(summaries),
		Locations: summaries,
	}
}

// NewLatestResponse converts per-parameter readings to their wire shape.
func NewLatestResponse(param aggregation.Parameter, readings []aggregation.Reading) *LatestResponse {
	out := make([]Measurement, 0, len(readings))
	for _, r := range readings {
		out = append(out, NewMeasurement(r))
	}
	return &LatestResponse{
		Parameter: string(param),
		Found:     len(out),
		Readings:  out,
	}
}
