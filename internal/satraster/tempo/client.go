// Package tempo provides a client for the TEMPO satellite raster extract
// service, which serves pre-flattened point arrays per parameter.
package tempo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airscope/airscope/internal/provider/resilience"
	"github.com/airscope/airscope/internal/satraster"
)

// ProviderName identifies this provider.
const ProviderName = "tempo"

// products maps raster parameters to TEMPO L3 product short names.
var products = map[satraster.Parameter]string{
	satraster.ParameterNO2:  "TEMPO_NO2_L3",
	satraster.ParameterO3:   "TEMPO_O3TOT_L3",
	satraster.ParameterSO2:  "TEMPO_SO2_L3",
	satraster.ParameterHCHO: "TEMPO_HCHO_L3",
}

// ClientConfig holds configuration for the TEMPO client.
type ClientConfig struct {
	// BaseURL is the extract service base URL. Required.
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual requests (default: 60s; granules are large).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a TEMPO extract client. It implements satraster.RasterProvider.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new TEMPO client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    ProviderName,
			Timeout: timeout,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// granuleResponse is the extract service's wire format.
type granuleResponse struct {
	Product string                `json:"product"`
	Updated time.Time             `json:"updated"`
	Points  []satraster.GridPoint `json:"points"`
}

// FetchRaster downloads the latest extract for one parameter.
func (c *Client) FetchRaster(ctx context.Context, param satraster.Parameter) (*satraster.RasterSet, error) {
	product, ok := products[param]
	if !ok {
		return nil, fmt.Errorf("%w: %q", satraster.ErrUnknownParameter, param)
	}

	url := fmt.Sprintf("%s/granules/%s/latest", c.baseURL, product)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch granule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from granule endpoint", resp.StatusCode)
	}

	var granule granuleResponse
	if err := json.NewDecoder(resp.Body).Decode(&granule); err != nil {
		return nil, fmt.Errorf("decode granule response: %w", err)
	}

	return &satraster.RasterSet{
		Parameter: param,
		FetchedAt: granule.Updated,
		Points:    granule.Points,
	}, nil
}
