// Package handler provides HTTP handlers for the airscope API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/airscope/airscope/internal/aggregation"
	"github.com/airscope/airscope/internal/api/middleware"
	"github.com/airscope/airscope/internal/api/models"
	"github.com/airscope/airscope/internal/api/response"
)

// Default query parameter values for the air quality endpoints.
const (
	defaultCatalogLimit = 1000
	defaultMaxProcess   = 10
)

// AirQualityProvider serves the catalog listing and the thin per-parameter
// endpoint. The aggregation engine holds its own provider handle.
type AirQualityProvider interface {
	FetchLocations(ctx context.Context, bbox aggregation.BoundingBox, limit int) ([]aggregation.Location, error)
	LatestByParameter(ctx context.Context, param aggregation.Parameter, bbox aggregation.BoundingBox, limit int) ([]aggregation.Reading, error)
}

// AirQualityHandler handles the air quality endpoints.
type AirQualityHandler struct {
	service  *aggregation.Service
	provider AirQualityProvider
	metrics  *middleware.EngineMetrics
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(service *aggregation.Service, provider AirQualityProvider, metrics *middleware.EngineMetrics) *AirQualityHandler {
	return &AirQualityHandler{
		service:  service,
		provider: provider,
		metrics:  metrics,
	}
}

// Aggregate handles GET /v1/air-quality/locations/aggregate - one full
// bounded-area aggregation run.
func (h *AirQualityHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	bbox, err := aggregation.ParseBoundingBox(query.Get("bbox"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "bbox", Message: "expected minLon,minLat,maxLon,maxLat"},
		})
		return
	}

	limit, err := intQuery(query.Get("limit"), defaultCatalogLimit)
	if err != nil {
		response.BadRequest(w, r, "limit must be an integer", []models.FieldError{
			{Field: "limit", Message: err.Error()},
		})
		return
	}

	maxProcess, err := intQuery(query.Get("max_process"), defaultMaxProcess)
	if err != nil {
		response.BadRequest(w, r, "max_process must be an integer", []models.FieldError{
			{Field: "max_process", Message: err.Error()},
		})
		return
	}

	sampling := query.Get("sampling")
	if sampling == "" {
		sampling = string(aggregation.StrategyDistributed)
	}

	result, err := h.service.Aggregate(r.Context(), aggregation.AggregateRequest{
		BBox:       bbox,
		Limit:      limit,
		MaxProcess: maxProcess,
		Strategy:   aggregation.Strategy(sampling),
	})
	if err != nil {
		writeAggregationError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRun(sampling, result.Elapsed, result.Performance.SuccessCount, result.Performance.FailureCount)
	}

	response.JSON(w, r, http.StatusOK, models.NewAggregateResponse(result))
}

// ListLocations handles GET /v1/air-quality/locations - the raw catalog
// listing for a bbox, without any measurement fetching.
func (h *AirQualityHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	bbox, err := aggregation.ParseBoundingBox(query.Get("bbox"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "bbox", Message: "expected minLon,minLat,maxLon,maxLat"},
		})
		return
	}

	limit, err := intQuery(query.Get("limit"), defaultCatalogLimit)
	if err != nil {
		response.BadRequest(w, r, "limit must be an integer", []models.FieldError{
			{Field: "limit", Message: err.Error()},
		})
		return
	}
	if limit < 1 || limit > aggregation.MaxCatalogLimit {
		response.BadRequest(w, r, "limit out of range", []models.FieldError{
			{Field: "limit", Message: "must be within [1, 10000]"},
		})
		return
	}

	locations, err := h.provider.FetchLocations(r.Context(), bbox, limit)
	if err != nil {
		writeAggregationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewLocationsResponse(locations))
}

// Latest handles GET /v1/air-quality/latest - latest readings for one
// parameter across all catalog locations in the bbox, without sampling.
func (h *AirQualityHandler) Latest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	param, err := aggregation.ParseParameter(query.Get("parameter"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "parameter", Message: "expected one of pm10, pm25, no2, co, so2, o3"},
		})
		return
	}

	bbox, err := aggregation.ParseBoundingBox(query.Get("bbox"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "bbox", Message: "expected minLon,minLat,maxLon,maxLat"},
		})
		return
	}

	limit, err := intQuery(query.Get("limit"), defaultCatalogLimit)
	if err != nil {
		response.BadRequest(w, r, "limit must be an integer", []models.FieldError{
			{Field: "limit", Message: err.Error()},
		})
		return
	}

	readings, err := h.provider.LatestByParameter(r.Context(), param, bbox, limit)
	if err != nil {
		writeAggregationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewLatestResponse(param, readings))
}

// intQuery parses an optional integer query parameter.
func intQuery(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// writeAggregationError maps engine errors to Problem responses. Input
// errors become 400s; upstream failures surface as gateway errors.
func writeAggregationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, aggregation.ErrInvalidBoundingBox),
		errors.Is(err, aggregation.ErrInvalidLimit),
		errors.Is(err, aggregation.ErrInvalidSampleSize),
		errors.Is(err, aggregation.ErrUnknownStrategy),
		errors.Is(err, aggregation.ErrUnknownParameter):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, aggregation.ErrLocationUnavailable):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, aggregation.ErrUpstreamTimeout):
		response.UpstreamTimeout(w, r, err.Error())
	case errors.Is(err, aggregation.ErrUpstreamUnavailable):
		response.UpstreamUnavailable(w, r, err.Error())
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
