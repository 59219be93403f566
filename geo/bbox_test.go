package geo

import (
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
)

func ll(lat, lng float64) s2.LatLng {
	return s2.LatLngFromDegrees(lat, lng)
}

func TestBoundingBoxSimple(t *testing.T) {
	tests := []struct {
		name   string
		points []s2.LatLng
		want   Rect
	}{
		{
			name:   "single point",
			points: []s2.LatLng{ll(10, 20)},
			want:   Rect{MinLat: 10, MinLng: 20, MaxLat: 10, MaxLng: 20},
		},
		{
			name:   "western europe",
			points: []s2.LatLng{ll(48.85, 2.35), ll(52.52, 13.4), ll(40.42, -3.7)},
			want:   Rect{MinLat: 40.42, MinLng: -3.7, MaxLat: 52.52, MaxLng: 13.4},
		},
		{
			name:   "spans hemispheres but no crossing",
			points: []s2.LatLng{ll(-33.87, 151.21), ll(35.68, 139.69), ll(1.35, 103.82)},
			want:   Rect{MinLat: -33.87, MinLng: 103.82, MaxLat: 35.68, MaxLng: 151.21},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoundingBox(tt.points)
			assert.InDelta(t, tt.want.MinLat, got.MinLat, 1e-9)
			assert.InDelta(t, tt.want.MinLng, got.MinLng, 1e-9)
			assert.InDelta(t, tt.want.MaxLat, got.MaxLat, 1e-9)
			assert.InDelta(t, tt.want.MaxLng, got.MaxLng, 1e-9)
			assert.False(t, got.CrossesAntimeridian())
		})
	}
}

func TestBoundingBoxDateLine(t *testing.T) {
	// Fiji straddles the antimeridian: points on both sides must yield a
	// wrapped box whose stated minimum exceeds its maximum.
	points := []s2.LatLng{
		ll(-17.7, 177.4),  // Viti Levu
		ll(-16.8, -179.3), // Vanua Levu's eastern islands
		ll(-18.1, 178.5),
	}
	got := BoundingBox(points)
	assert.True(t, got.CrossesAntimeridian(), "expected MinLng > MaxLng")
	assert.InDelta(t, 177.4, got.MinLng, 1e-9)
	assert.InDelta(t, -179.3, got.MaxLng, 1e-9)
	assert.InDelta(t, 180.0, got.CenterLng(), 1e-9)
	assert.InDelta(t, 3.3, got.LngSpan(), 1e-9)
}

func TestBoundingBoxNormalizesLongitudes(t *testing.T) {
	// 190°E is the same meridian as -170; input outside [-180, 180] must be
	// folded before the gap analysis runs.
	got := BoundingBox([]s2.LatLng{ll(0, 190), ll(0, 175)})
	assert.True(t, got.CrossesAntimeridian())
	assert.InDelta(t, 175, got.MinLng, 1e-9)
	assert.InDelta(t, -170, got.MaxLng, 1e-9)
}

func TestBoundingBoxOutlierGap(t *testing.T) {
	// Documented approximation: with a lone outlier near -90 and a cluster
	// around +170, the largest gap is chosen as the outside arc, wrapping
	// the box the long way around instead of the minimal enclosure. This
	// test pins the behaviour so a silent "fix" is noticed.
	points := []s2.LatLng{ll(0, 170), ll(0, 175), ll(0, -90)}
	got := BoundingBox(points)
	assert.True(t, got.CrossesAntimeridian())
	assert.InDelta(t, 170, got.MinLng, 1e-9)
	assert.InDelta(t, -90, got.MaxLng, 1e-9)
}

func TestRectExpand(t *testing.T) {
	r := Rect{MinLat: -89.5, MinLng: 10, MaxLat: 89.5, MaxLng: 20}
	e := r.Expand(1)
	assert.Equal(t, -90.0, e.MinLat, "latitude clamped at south pole")
	assert.Equal(t, 90.0, e.MaxLat, "latitude clamped at north pole")
	assert.Equal(t, 9.0, e.MinLng)
	assert.Equal(t, 21.0, e.MaxLng)
}

func TestRectContains(t *testing.T) {
	plain := Rect{MinLat: -10, MinLng: 100, MaxLat: 10, MaxLng: 120}
	assert.True(t, plain.Contains(ll(0, 110)))
	assert.False(t, plain.Contains(ll(0, 130)))

	wrapped := Rect{MinLat: -20, MinLng: 170, MaxLat: -10, MaxLng: -175}
	assert.True(t, wrapped.Contains(ll(-15, 179)))
	assert.True(t, wrapped.Contains(ll(-15, -178)))
	assert.False(t, wrapped.Contains(ll(-15, 0)))
}
