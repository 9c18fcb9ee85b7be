package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/airscope/airscope/internal/aggregation"
	"github.com/airscope/airscope/internal/api/models"
	"github.com/airscope/airscope/internal/api/response"
	"github.com/airscope/airscope/internal/satraster"
)

// RasterHandler serves bbox-filtered satellite raster reads.
type RasterHandler struct {
	service *satraster.Service
}

// NewRasterHandler creates a new RasterHandler.
func NewRasterHandler(service *satraster.Service) *RasterHandler {
	return &RasterHandler{service: service}
}

// Points handles GET /v1/raster/{parameter} - the latest stored satellite
// points for one parameter, filtered to the requested bbox.
func (h *RasterHandler) Points(w http.ResponseWriter, r *http.Request) {
	param, err := satraster.ParseParameter(chi.URLParam(r, "parameter"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "parameter", Message: "expected one of no2, o3, so2, hcho"},
		})
		return
	}

	bbox, err := aggregation.ParseBoundingBox(r.URL.Query().Get("bbox"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "bbox", Message: "expected minLon,minLat,maxLon,maxLat"},
		})
		return
	}

	points, fetchedAt, err := h.service.PointsInBBox(param, bbox)
	if err != nil {
		if errors.Is(err, satraster.ErrNoData) {
			response.NotFound(w, r, err.Error())
			return
		}
		response.InternalError(w, r, "an unexpected error occurred")
		return
	}

	response.JSON(w, r, http.StatusOK, models.RasterResponse{
		Parameter: string(param),
		FetchedAt: models.Timestamp(fetchedAt),
		Found:     len(points),
		Points:    points,
	})
}
