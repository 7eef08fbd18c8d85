package dto

import (
	"trip-console/internal/mapview"

	"github.com/paulmach/orb/geojson"
)

type FieldUpdateRequest struct {
	Value *string `json:"value"`
}

type RecalculateResponse struct {
	Generation uint64 `json:"generation"`
}

type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type MapResponse struct {
	Viewport mapview.Viewport           `json:"viewport"`
	Tiles    mapview.TileLayer          `json:"tiles"`
	Overlay  *geojson.FeatureCollection `json:"overlay"`
}
