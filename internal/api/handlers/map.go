package handlers

import (
	"net/http"
	"trip-console/internal/api/dto"
	"trip-console/internal/mapview"
)

// MapSource supplies the current map state.
type MapSource interface {
	Snapshot() mapview.Snapshot
}

type MapHandler struct {
	Map MapSource
}

// Get returns the viewport and the route overlay as GeoJSON.
func (h *MapHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.Map.Snapshot()
	writeJSON(w, r, http.StatusOK, dto.MapResponse{
		Viewport: snap.Viewport,
		Tiles:    snap.Tiles,
		Overlay:  snap.Overlay,
	})
}
