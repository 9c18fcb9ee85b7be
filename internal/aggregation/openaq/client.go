// Package openaq provides a client for the OpenAQ v3 API.
package openaq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airscope/airscope/internal/aggregation"
	"github.com/airscope/airscope/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ v3 API.
	DefaultBaseURL = "https://api.openaq.org/v3"

	// ProviderName identifies this provider.
	ProviderName = "openaq"
)

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent as the X-API-Key header when set.
	APIKey string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 30s).
	Timeout time.Duration

	// ConnectTimeout bounds connection establishment (default: 10s).
	ConnectTimeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenAQ v3 API client. It implements aggregation.Provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		connectTimeout := cfg.ConnectTimeout
		if connectTimeout == 0 {
			connectTimeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:           ProviderName,
			Timeout:        timeout,
			ConnectTimeout: connectTimeout,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// API response types (from the OpenAQ v3 API).

type locationsResponse struct {
	Results []locationData `json:"results"`
}

type locationData struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Locality    string          `json:"locality"`
	Timezone    string          `json:"timezone"`
	Country     countryData     `json:"country"`
	Coordinates coordinatesData `json:"coordinates"`
}

type countryData struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type coordinatesData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type sensorsResponse struct {
	Results []sensorData `json:"results"`
}

type sensorData struct {
	ID        int           `json:"id"`
	Parameter parameterData `json:"parameter"`
}

type parameterData struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Units string `json:"units"`
}

type measurementsResponse struct {
	Results []measurementData `json:"results"`
}

type measurementData struct {
	Value     float64       `json:"value"`
	Parameter parameterData `json:"parameter"`
	Datetime  datetimeData  `json:"datetime"`
}

type datetimeData struct {
	UTC   string `json:"utc"`
	Local string `json:"local"`
}

// FetchLocations retrieves candidate locations inside the bbox, in catalog
// order. The bbox and limit are validated before any network call.
func (c *Client) FetchLocations(ctx context.Context, bbox aggregation.BoundingBox, limit int) ([]aggregation.Location, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	if limit < 1 || limit > aggregation.MaxCatalogLimit {
		return nil, fmt.Errorf("%w: limit must be within [1, %d], got %d",
			aggregation.ErrInvalidLimit, aggregation.MaxCatalogLimit, limit)
	}

	query := url.Values{}
	query.Set("bbox", bbox.String())
	query.Set("limit", strconv.Itoa(limit))

	var result locationsResponse
	if err := c.getJSON(ctx, "/locations?"+query.Encode(), &result, nil); err != nil {
		return nil, err
	}

	locations := make([]aggregation.Location, 0, len(result.Results))
	for i := range result.Results {
		locations = append(locations, toLocation(&result.Results[i]))
	}
	return locations, nil
}

// FetchLocation resolves current metadata for one location.
func (c *Client) FetchLocation(ctx context.Context, id int) (*aggregation.Location, error) {
	var result locationsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/locations/%d", id), &result, aggregation.ErrLocationUnavailable); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, aggregation.ErrLocationUnavailable
	}

	loc := toLocation(&result.Results[0])
	return &loc, nil
}

// FetchSensors lists the location's sensors, dropping any whose parameter id
// is not in the fixed id table.
func (c *Client) FetchSensors(ctx context.Context, locationID int) ([]aggregation.Sensor, error) {
	var result sensorsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/locations/%d/sensors", locationID), &result, aggregation.ErrLocationUnavailable); err != nil {
		return nil, err
	}

	sensors := make([]aggregation.Sensor, 0, len(result.Results))
	for _, s := range result.Results {
		param, ok := aggregation.ParameterByID(s.Parameter.ID)
		if !ok {
			continue
		}
		sensors = append(sensors, aggregation.Sensor{ID: s.ID, Parameter: param})
	}
	return sensors, nil
}

// FetchLatestReading returns the latest reading for a sensor, or (nil, nil)
// when the sensor has no measurements.
func (c *Client) FetchLatestReading(ctx context.Context, sensor aggregation.Sensor) (*aggregation.Reading, error) {
	var result measurementsResponse
	path := fmt.Sprintf("/sensors/%d/measurements?limit=1", sensor.ID)
	if err := c.getJSON(ctx, path, &result, nil); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, nil
	}

	return toReading(sensor.Parameter, &result.Results[0]), nil
}

// LatestByParameter retrieves the latest readings for one parameter across
// all locations in the bbox. Serves the thin per-parameter endpoint; the
// aggregation engine does not use it.
func (c *Client) LatestByParameter(ctx context.Context, param aggregation.Parameter, bbox aggregation.BoundingBox, limit int) ([]aggregation.Reading, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("bbox", bbox.String())
	query.Set("limit", strconv.Itoa(limit))

	var result measurementsResponse
	path := fmt.Sprintf("/parameters/%d/latest?%s", param.UpstreamID(), query.Encode())
	if err := c.getJSON(ctx, path, &result, nil); err != nil {
		return nil, err
	}

	readings := make([]aggregation.Reading, 0, len(result.Results))
	for i := range result.Results {
		readings = append(readings, *toReading(param, &result.Results[i]))
	}
	return readings, nil
}

// getJSON performs one GET against the API and decodes the response body,
// classifying transport and status errors into the aggregation taxonomy.
// missing is returned for 404/410 responses; per-location callers pass
// ErrLocationUnavailable, catalog-stage callers pass nil so every non-2xx
// classifies as ErrUpstreamUnavailable.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}, missing error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", aggregation.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", aggregation.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case missing != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone):
		return missing
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: unexpected status %d", aggregation.ErrUpstreamUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isTimeout reports whether the transport error was deadline-related.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// toLocation converts API location data to a domain Location.
func toLocation(l *locationData) aggregation.Location {
	return aggregation.Location{
		ID:       l.ID,
		Name:     l.Name,
		Locality: l.Locality,
		Timezone: l.Timezone,
		Country:  l.Country.Code,
		Lat:      l.Coordinates.Latitude,
		Lon:      l.Coordinates.Longitude,
	}
}

// toReading converts API measurement data to a domain Reading.
func toReading(param aggregation.Parameter, m *measurementData) *aggregation.Reading {
	utc, _ := time.Parse(time.RFC3339, m.Datetime.UTC)

	return &aggregation.Reading{
		Parameter: param,
		Value:     m.Value,
		Unit:      m.Parameter.Units,
		UTC:       utc,
		Local:     m.Datetime.Local,
	}
}
