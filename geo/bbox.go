// Package geo provides bounding-box math for map extents, including the
// antimeridian-crossing case that naive min/max gets wrong.
package geo

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// Rect is a geographic bounding box in degrees.
//
// A Rect whose MinLng exceeds its MaxLng crosses the antimeridian: it spans
// eastward from MinLng, through ±180, to MaxLng. Renderers must recentre on
// longitude 180 to display such a box contiguously.
type Rect struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// BoundingBox returns the smallest Rect covering all points.
//
// Longitudes are normalised to [-180, 180]. If the sorted longitudes span
// more than 180 degrees, the largest gap between adjacent longitudes is
// treated as the arc outside the box, and the box wraps around the
// antimeridian instead (MinLng > MaxLng).
//
// Accepted approximation: a single extreme outlier can make the largest gap
// fall on the wrong side, producing an oversized box rather than the minimal
// one. Oversized still frames every point, so that trade-off stands.
func BoundingBox(points []s2.LatLng) Rect {
	if len(points) == 0 {
		return Rect{}
	}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	lngs := make([]float64, 0, len(points))
	for _, p := range points {
		lat := p.Lat.Degrees()
		if lat < minLat {
			minLat = lat
		}
		if lat > maxLat {
			maxLat = lat
		}
		lngs = append(lngs, normalizeLng(p.Lng.Degrees()))
	}

	sorted := make([]float64, len(lngs))
	copy(sorted, lngs)
	sort.Float64s(sorted)

	r := Rect{MinLat: minLat, MaxLat: maxLat}
	if sorted[len(sorted)-1]-sorted[0] > 180 {
		// Crossing: the largest adjacent gap is the arc NOT covered.
		gapIdx := 1
		gap := sorted[1] - sorted[0]
		for i := 2; i < len(sorted); i++ {
			if d := sorted[i] - sorted[i-1]; d > gap {
				gap = d
				gapIdx = i
			}
		}
		r.MinLng = sorted[gapIdx]
		r.MaxLng = sorted[gapIdx-1]
	} else {
		r.MinLng = sorted[0]
		r.MaxLng = sorted[len(sorted)-1]
	}
	return r
}

// normalizeLng maps a longitude into [-180, 180].
func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

// CrossesAntimeridian reports whether the box wraps around ±180.
func (r Rect) CrossesAntimeridian() bool {
	return r.MinLng > r.MaxLng
}

// Expand grows the box by margin degrees on every side. Latitudes are
// clamped to the valid range; longitudes are left unclamped, matching how
// the renderer treats extents as an open plane around its centre.
func (r Rect) Expand(margin float64) Rect {
	out := Rect{
		MinLat: math.Max(r.MinLat-margin, -90),
		MinLng: r.MinLng - margin,
		MaxLat: math.Min(r.MaxLat+margin, 90),
		MaxLng: r.MaxLng + margin,
	}
	return out
}

// LngSpan returns the box width in degrees of longitude, accounting for an
// antimeridian crossing.
func (r Rect) LngSpan() float64 {
	if r.CrossesAntimeridian() {
		return r.MaxLng - r.MinLng + 360
	}
	return r.MaxLng - r.MinLng
}

// LatSpan returns the box height in degrees of latitude.
func (r Rect) LatSpan() float64 {
	return r.MaxLat - r.MinLat
}

// CenterLng returns the central longitude a renderer should project around:
// 180 for a crossing box, 0 otherwise.
func (r Rect) CenterLng() float64 {
	if r.CrossesAntimeridian() {
		return 180
	}
	return 0
}

// Contains reports whether the point lies inside the box, handling the
// crossing case.
func (r Rect) Contains(p s2.LatLng) bool {
	lat := p.Lat.Degrees()
	lng := normalizeLng(p.Lng.Degrees())
	if lat < r.MinLat || lat > r.MaxLat {
		return false
	}
	if r.CrossesAntimeridian() {
		return lng >= r.MinLng || lng <= r.MaxLng
	}
	return lng >= r.MinLng && lng <= r.MaxLng
}
