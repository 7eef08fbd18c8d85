// Package mapview holds the server-side model of the console map: one tile
// layer, a viewport, and the vector layers drawn over it.
package mapview

import (
	"sync"
	"trip-console/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	DefaultZoom = 10
	MaxZoom     = 19

	TileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	TileAttribution = "&copy; OpenStreetMap contributors"
)

var DefaultCenter = domain.LatLon{Lat: 11.1085, Lon: 77.3411}

// Size is the pixel size of the rendered map.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var DefaultSize = Size{Width: 960, Height: 540}

type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

// PolylineStyle is passed through to the browser as feature properties.
type PolylineStyle struct {
	Weight    int
	Color     string
	Opacity   float64
	ClassName string
}

var RouteStyle = PolylineStyle{Weight: 6, Color: "#CAFF3A", Opacity: 0.95, ClassName: "ev-route-glow"}

// LayerID identifies a vector layer on a Map. Zero is never assigned.
type LayerID uint64

type layerKind string

const (
	kindPolyline layerKind = "polyline"
	kindMarker   layerKind = "marker"
)

type layer struct {
	id      LayerID
	kind    layerKind
	feature *geojson.Feature
}

// Map is safe for concurrent use. Mutations go through Edit so that readers
// never observe a half-applied change.
type Map struct {
	mu     sync.RWMutex
	size   Size
	tiles  TileLayer
	center domain.LatLon
	zoom   int
	nextID LayerID
	layers []layer
}

func newMap(size Size) *Map {
	return &Map{
		size:   size,
		tiles:  TileLayer{URL: TileURL, Attribution: TileAttribution, MaxZoom: MaxZoom},
		center: DefaultCenter,
		zoom:   DefaultZoom,
	}
}

// Editor exposes the mutating operations inside Map.Edit.
type Editor struct {
	m *Map
}

// Edit runs fn with exclusive access to the map.
func (m *Map) Edit(fn func(e *Editor)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&Editor{m: m})
}

func (e *Editor) add(kind layerKind, f *geojson.Feature) LayerID {
	e.m.nextID++
	id := e.m.nextID
	f.ID = uint64(id)
	f.Properties["kind"] = string(kind)
	e.m.layers = append(e.m.layers, layer{id: id, kind: kind, feature: f})
	return id
}

// AddPolyline draws points in order with the given style.
func (e *Editor) AddPolyline(points []domain.LatLon, style PolylineStyle) LayerID {
	f := geojson.NewFeature(domain.LineString(points))
	f.Properties["weight"] = style.Weight
	f.Properties["color"] = style.Color
	f.Properties["opacity"] = style.Opacity
	f.Properties["className"] = style.ClassName
	return e.add(kindPolyline, f)
}

// AddMarker places a labelled marker at pos.
func (e *Editor) AddMarker(pos domain.LatLon, label string) LayerID {
	f := geojson.NewFeature(pos.Point())
	f.Properties["label"] = label
	return e.add(kindMarker, f)
}

// Remove detaches the layer. It reports false if id is not on the map.
func (e *Editor) Remove(id LayerID) bool {
	for i, l := range e.m.layers {
		if l.id == id {
			e.m.layers = append(e.m.layers[:i], e.m.layers[i+1:]...)
			return true
		}
	}
	return false
}

// FitBounds moves the viewport so b is fully visible inside padding pixels.
func (e *Editor) FitBounds(b orb.Bound, padding int) {
	e.m.center, e.m.zoom = fitBounds(b, e.m.size, padding, e.m.tiles.MaxZoom)
}

// Viewport describes what the browser should show.
type Viewport struct {
	Center domain.LatLon    `json:"center"`
	Zoom   int              `json:"zoom"`
	Size   Size             `json:"size"`
	Bounds [2]domain.LatLon `json:"bounds"`
}

// Snapshot is a detached copy of the map state.
type Snapshot struct {
	Viewport Viewport                   `json:"viewport"`
	Tiles    TileLayer                  `json:"tiles"`
	Overlay  *geojson.FeatureCollection `json:"overlay"`
}

func (m *Map) Viewport() Viewport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewportLocked()
}

func (m *Map) viewportLocked() Viewport {
	sw, ne := visibleBounds(m.center, m.zoom, m.size)
	return Viewport{Center: m.center, Zoom: m.zoom, Size: m.size, Bounds: [2]domain.LatLon{sw, ne}}
}

func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	for _, l := range m.layers {
		f := geojson.NewFeature(orb.Clone(l.feature.Geometry))
		f.ID = l.feature.ID
		f.Properties = l.feature.Properties.Clone()
		fc.Append(f)
	}

	return Snapshot{
		Viewport: m.viewportLocked(),
		Tiles:    m.tiles,
		Overlay:  fc,
	}
}

// Counts returns how many polylines and markers are attached.
func (m *Map) Counts() (polylines, markers int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.layers {
		switch l.kind {
		case kindPolyline:
			polylines++
		case kindMarker:
			markers++
		}
	}
	return polylines, markers
}
