package mapview

import (
	"math"
	"trip-console/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const tileSize = 256

// fitBounds returns the centre and the largest zoom, no greater than maxZoom,
// at which b fits inside size minus padding on every side.
func fitBounds(b orb.Bound, size Size, padding, maxZoom int) (domain.LatLon, int) {
	// Web-Mercator y grows southwards, so the top-left corner is (min lon, max lat).
	tl := maptile.Fraction(orb.Point{b.Min.Lon(), b.Max.Lat()}, 0)
	br := maptile.Fraction(orb.Point{b.Max.Lon(), b.Min.Lat()}, 0)

	w := (br[0] - tl[0]) * tileSize
	h := (br[1] - tl[1]) * tileSize
	availW := math.Max(float64(size.Width-2*padding), 1)
	availH := math.Max(float64(size.Height-2*padding), 1)

	zoom := maxZoom
	for zoom > 0 {
		scale := math.Exp2(float64(zoom))
		if w*scale <= availW && h*scale <= availH {
			break
		}
		zoom--
	}

	center := unproject((tl[0]+br[0])/2, (tl[1]+br[1])/2)
	return center, zoom
}

// visibleBounds returns the south-west and north-east corners shown by a
// viewport of the given size.
func visibleBounds(center domain.LatLon, zoom int, size Size) (sw, ne domain.LatLon) {
	c := maptile.Fraction(center.Point(), 0)
	world := tileSize * math.Exp2(float64(zoom))
	dx := float64(size.Width) / 2 / world
	dy := float64(size.Height) / 2 / world

	sw = unproject(c[0]-dx, clamp01(c[1]+dy))
	ne = unproject(c[0]+dx, clamp01(c[1]-dy))
	return sw, ne
}

// unproject converts a zoom-0 tile fraction back to degrees.
func unproject(x, y float64) domain.LatLon {
	lon := x*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return domain.LatLon{Lat: lat, Lon: lon}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
