package mapview

import (
	"fmt"
	"log"
	"sync"
	"trip-console/internal/domain"
	"trip-console/internal/numfmt"
)

// FitPadding is the margin kept around a fitted route, in pixels.
const FitPadding = 30

// Synchronizer keeps the map overlay in step with the latest route plan.
// At most one route polyline and its stop markers are attached at a time.
type Synchronizer struct {
	handle *Handle

	mu       sync.Mutex
	route    LayerID
	markers  []LayerID
	synced   bool
	revision uint64
}

func NewSynchronizer(handle *Handle) *Synchronizer {
	return &Synchronizer{handle: handle}
}

// Sync replaces the overlay with geometry and stops.
//
// The previous polyline and markers are always removed first. Empty geometry
// leaves no polyline and does not move the viewport.
func (s *Synchronizer) Sync(geometry []domain.LatLon, stops []domain.ChargeStop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked(geometry, stops)
}

func (s *Synchronizer) syncLocked(geometry []domain.LatLon, stops []domain.ChargeStop) {
	m := s.handle.Ensure()
	m.Edit(func(e *Editor) {
		if s.route != 0 {
			e.Remove(s.route)
			s.route = 0
		}
		for _, id := range s.markers {
			e.Remove(id)
		}
		s.markers = s.markers[:0]

		if len(geometry) > 0 {
			s.route = e.AddPolyline(geometry, RouteStyle)
			e.FitBounds(domain.LineString(geometry).Bound(), FitPadding)
		}

		for _, stop := range stops {
			s.markers = append(s.markers, e.AddMarker(stop.Position(), MarkerLabel(stop)))
		}
	})
}

// SyncPlan syncs plan unless the same revision was already applied.
// A nil plan clears the overlay. It reports whether the map changed.
func (s *Synchronizer) SyncPlan(revision uint64, plan *domain.RoutePlan) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.synced && s.revision == revision {
		return false
	}
	s.synced = true
	s.revision = revision

	if plan == nil {
		s.syncLocked(nil, nil)
	} else {
		s.syncLocked(plan.Route.Geometry, plan.Stops)
	}

	log.Printf("op=map_sync revision=%d", revision)
	return true
}

// MarkerLabel is the popup text of a stop marker.
func MarkerLabel(stop domain.ChargeStop) string {
	return fmt.Sprintf("%s: %s kWh", stop.Name, numfmt.Fixed(stop.EnergyAddedKwh, 2))
}
