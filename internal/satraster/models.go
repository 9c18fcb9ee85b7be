// Package satraster stores and serves satellite raster extracts: flat
// per-parameter point arrays produced by the scheduled ingestion job and
// filtered by bounding box on the read path. The bounded-area aggregation
// engine never calls into this package.
package satraster

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by the raster read path.
var (
	ErrNoData           = errors.New("no raster data available")
	ErrUnknownParameter = errors.New("unknown raster parameter")
)

// Parameter is a satellite-observed air quality parameter.
type Parameter string

const (
	ParameterNO2  Parameter = "no2"
	ParameterO3   Parameter = "o3"
	ParameterSO2  Parameter = "so2"
	ParameterHCHO Parameter = "hcho"
)

// Parameters lists all satellite-observed parameters.
func Parameters() []Parameter {
	return []Parameter{ParameterNO2, ParameterO3, ParameterSO2, ParameterHCHO}
}

// ParseParameter validates a wire-format parameter value.
func ParseParameter(s string) (Parameter, error) {
	switch Parameter(s) {
	case ParameterNO2, ParameterO3, ParameterSO2, ParameterHCHO:
		return Parameter(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownParameter, s)
	}
}

// GridPoint is one raster cell flattened to a point observation.
type GridPoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Value float64 `json:"value"`
}

// RasterSet is one parameter's point array from a single ingestion run.
type RasterSet struct {
	Parameter Parameter   `json:"parameter"`
	FetchedAt time.Time   `json:"fetched_at"`
	Points    []GridPoint `json:"points"`
}
