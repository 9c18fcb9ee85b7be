package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airscope/airscope/internal/api/models"
)

func TestProblem_Write(t *testing.T) {
	problem := models.NewBadRequest("req_abc", "bbox is malformed", []models.FieldError{
		{Field: "bbox", Message: "expected minLon,minLat,maxLon,maxLat"},
	})
	problem.Instance = "/v1/air-quality/locations/aggregate"

	rec := httptest.NewRecorder()
	problem.Write(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_abc", rec.Header().Get("X-Request-Id"))

	var decoded models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, models.ProblemTypeValidation, decoded.Type)
	assert.Equal(t, "Validation error", decoded.Title)
	assert.Equal(t, http.StatusBadRequest, decoded.Status)
	assert.Equal(t, "bbox is malformed", decoded.Detail)
	assert.Equal(t, "/v1/air-quality/locations/aggregate", decoded.Instance)
	require.Len(t, decoded.Errors, 1)
	assert.Equal(t, "bbox", decoded.Errors[0].Field)
}

func TestProblem_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		problem    *models.Problem
		wantStatus int
		wantType   string
	}{
		{"not found", models.NewNotFound("id", "gone"), http.StatusNotFound, models.ProblemTypeNotFound},
		{"too many requests", models.NewTooManyRequests("id", "slow down"), http.StatusTooManyRequests, models.ProblemTypeTooManyRequests},
		{"internal", models.NewInternalError("id", "boom"), http.StatusInternalServerError, models.ProblemTypeInternal},
		{"upstream unavailable", models.NewUpstreamUnavailable("id", "catalog 500"), http.StatusBadGateway, models.ProblemTypeUnavailable},
		{"upstream timeout", models.NewUpstreamTimeout("id", "deadline"), http.StatusGatewayTimeout, models.ProblemTypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.problem.Status)
			assert.Equal(t, tt.wantType, tt.problem.Type)
		})
	}
}
