// Package aggregation implements the bounded-area aggregation engine:
// candidate discovery, geographic sampling, bounded concurrent measurement
// fetching and result reporting for a geographic bounding box.
package aggregation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Input errors, rejected before any upstream call is made.
var (
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	ErrInvalidLimit       = errors.New("limit out of range")
	ErrInvalidSampleSize  = errors.New("sample size must be positive")
	ErrUnknownStrategy    = errors.New("unknown sampling strategy")
	ErrUnknownParameter   = errors.New("unknown parameter")
)

// Upstream errors.
var (
	// ErrUpstreamUnavailable indicates a non-2xx response from the catalog.
	ErrUpstreamUnavailable = errors.New("upstream catalog unavailable")

	// ErrUpstreamTimeout indicates an upstream call exceeded its deadline.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrLocationUnavailable indicates a sampled location no longer exists
	// upstream. It aborts that location's fetch only.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// MaxCatalogLimit is the largest candidate count the catalog accepts.
const MaxCatalogLimit = 10000

// BoundingBox is an axis-aligned geographic rectangle.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Validate checks that both axes are well-formed (min < max).
func (b BoundingBox) Validate() error {
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return fmt.Errorf("%w: min must be strictly less than max on both axes", ErrInvalidBoundingBox)
	}
	return nil
}

// ParseBoundingBox parses the wire format "minLon,minLat,maxLon,maxLat".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected minLon,minLat,maxLon,maxLat", ErrInvalidBoundingBox)
	}

	values := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: coordinate %q is not a number", ErrInvalidBoundingBox, p)
		}
		values[i] = v
	}

	bbox := BoundingBox{MinLon: values[0], MinLat: values[1], MaxLon: values[2], MaxLat: values[3]}
	if err := bbox.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return bbox, nil
}

// String renders the wire format accepted by the upstream catalog.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Parameter is an air quality parameter key.
type Parameter string

const (
	ParameterPM10 Parameter = "pm10"
	ParameterPM25 Parameter = "pm25"
	ParameterNO2  Parameter = "no2"
	ParameterCO   Parameter = "co"
	ParameterSO2  Parameter = "so2"
	ParameterO3   Parameter = "o3"
)

// Parameters lists all monitored parameter keys in reporting order.
func Parameters() []Parameter {
	return []Parameter{ParameterPM10, ParameterPM25, ParameterNO2, ParameterCO, ParameterSO2, ParameterO3}
}

// parameterIDs is the fixed upstream id table.
var parameterIDs = map[Parameter]int{
	ParameterPM10: 1,
	ParameterPM25: 2,
	ParameterNO2:  7,
	ParameterCO:   8,
	ParameterSO2:  9,
	ParameterO3:   10,
}

var parametersByID = func() map[int]Parameter {
	m := make(map[int]Parameter, len(parameterIDs))
	for p, id := range parameterIDs {
		m[id] = p
	}
	return m
}()

// UpstreamID returns the fixed upstream numeric id for the parameter.
func (p Parameter) UpstreamID() int {
	return parameterIDs[p]
}

// ParameterByID resolves an upstream numeric id to a parameter key.
// Unknown ids return false; callers drop those sensors.
func ParameterByID(id int) (Parameter, bool) {
	p, ok := parametersByID[id]
	return p, ok
}

// ParseParameter validates a wire-format parameter key.
func ParseParameter(s string) (Parameter, error) {
	p := Parameter(s)
	if _, ok := parameterIDs[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownParameter, s)
	}
	return p, nil
}

// Location is a candidate monitoring station returned by the catalog.
type Location struct {
	ID       int
	Name     string
	Locality string
	Timezone string
	Country  string
	Lat      float64
	Lon      float64
}

// Sensor is one upstream sensor at a location, already resolved to a
// parameter key. Sensors with unmapped parameter ids never reach this type.
type Sensor struct {
	ID        int
	Parameter Parameter
}

// Reading is the latest value of one parameter at one location.
type Reading struct {
	Parameter Parameter
	Value     float64
	Unit      string
	UTC       time.Time
	Local     string
}

// LocationBundle pairs a sampled location with whichever parameter readings
// were resolved for it. Readings is sparse: absent keys were unavailable.
type LocationBundle struct {
	Location Location
	Readings map[Parameter]Reading
}

// FailureRecord captures a per-location failure during fan-out.
type FailureRecord struct {
	Location Location
	Err      error
}

// Outcome is the settled result of one location's fetch task. Exactly one of
// Bundle or Failure is set.
type Outcome struct {
	Bundle  *LocationBundle
	Failure *FailureRecord
}

// Performance reports batch throughput telemetry.
type Performance struct {
	SuccessCount         int
	FailureCount         int
	TotalElapsedSeconds  float64
	LocationsPerSecond   float64
	AvgTimePerLocationMs float64
}

// Coverage reports how many successful bundles contained a parameter.
type Coverage struct {
	AvailableAt int
	Percentage  float64
}

// Result is the consolidated answer for one aggregation request.
// It is built once per request and never persisted.
type Result struct {
	Bundles     []LocationBundle
	Failures    []FailureRecord
	Performance Performance
	Coverage    map[Parameter]Coverage

	// Elapsed is the fan-out wall time at full precision; Performance
	// carries the rounded wire value.
	Elapsed time.Duration
}
