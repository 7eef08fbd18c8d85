package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// Immutable geographic position in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the position as an orb.Point, which is ordered [lon, lat].
func (c LatLon) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

// Valid reports whether both components are finite and inside WGS84 ranges.
func (c LatLon) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// LineString converts an ordered list of positions into an orb.LineString.
func LineString(points []LatLon) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, p.Point())
	}
	return ls
}
