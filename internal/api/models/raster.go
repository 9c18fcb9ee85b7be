package models

import (
	"github.com/airscope/airscope/internal/satraster"
)

// RasterResponse is the wire shape of a bbox-filtered satellite raster read.
type RasterResponse struct {
	Parameter string                `json:"parameter"`
	FetchedAt Timestamp             `json:"fetched_at"`
	Found     int                   `json:"found"`
	Points    []satraster.GridPoint `json:"points"`
}
