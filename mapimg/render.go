package mapimg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/disintegration/imaging"
	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"geodeck/geo"
)

// Map palette, loosely matching the cartopy defaults the reference maps use.
var (
	oceanColor   = color.NRGBA{0xa8, 0xc8, 0xe8, 0xff}
	landColor    = color.NRGBA{0xef, 0xef, 0xdb, 0xff}
	outlineColor = color.NRGBA{0x6e, 0x6e, 0x6e, 0xff}
	markerColor  = color.NRGBA{0xd0, 0x20, 0x20, 0xff}
	creditColor  = color.NRGBA{0x40, 0x40, 0x40, 0xff}
)

const (
	renderWidth      = 800
	markerRadius     = 5
	attributionText  = "Made with Natural Earth"
	geohashPrecision = 9
)

// Renderer draws country maps from admin-0 boundary polygons.
type Renderer struct {
	features []*geojson.Feature
	face     font.Face
	log      *zap.SugaredLogger
}

// NewRenderer parses the boundaries GeoJSON (a FeatureCollection of country
// polygons with ISO codes in the properties) and prepares a label face.
func NewRenderer(boundaries []byte, log *zap.SugaredLogger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	fc, err := geojson.UnmarshalFeatureCollection(boundaries)
	if err != nil {
		return nil, fmt.Errorf("parsing boundaries: %w", err)
	}
	ft, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing label font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{Size: 12, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("building label face: %w", err)
	}
	return &Renderer{features: fc.Features, face: face, log: log}, nil
}

// CountryExtent computes the bounding box of the country with the given
// ISO 3166-1 alpha-2 code from its boundary polygons. The box is date-line
// aware; for countries like Fiji it wraps around ±180.
func (r *Renderer) CountryExtent(iso string) (geo.Rect, bool) {
	var points []s2.LatLng
	for _, f := range r.features {
		if featureISO(f) != iso {
			continue
		}
		collectVertices(f, &points)
	}
	if len(points) == 0 {
		return geo.Rect{}, false
	}
	return geo.BoundingBox(points), true
}

// featureISO digs the alpha-2 code out of the Natural Earth properties,
// which have changed key casing between releases.
func featureISO(f *geojson.Feature) string {
	for _, key := range []string{"ISO_A2", "iso_a2", "ISO_A2_EH"} {
		if v, err := f.PropertyString(key); err == nil && v != "" && v != "-99" {
			return v
		}
	}
	return ""
}

func collectVertices(f *geojson.Feature, points *[]s2.LatLng) {
	appendRing := func(ring [][]float64) {
		for _, p := range ring {
			*points = append(*points, s2.LatLngFromDegrees(p[1], p[0]))
		}
	}
	switch {
	case f.Geometry.IsPolygon():
		for _, ring := range f.Geometry.Polygon {
			appendRing(ring)
		}
	case f.Geometry.IsMultiPolygon():
		for _, poly := range f.Geometry.MultiPolygon {
			for _, ring := range poly {
				appendRing(ring)
			}
		}
	}
}

// CityMapFilename names a rendered city map by the geohash of its marker,
// giving a stable, filesystem-safe name per location.
func CityMapFilename(marker s2.LatLng) string {
	return geohash.EncodeWithPrecision(marker.Lat.Degrees(), marker.Lng.Degrees(), geohashPrecision) + ".png"
}

// RenderCity draws every country polygon over an ocean fill within the given
// extent, marks the city, and writes the PNG to outPath. Extents that cross
// the antimeridian are projected around a central longitude of 180 so the
// country appears contiguous.
func (r *Renderer) RenderCity(extent geo.Rect, marker s2.LatLng, outPath string) error {
	proj := newProjection(extent, renderWidth)
	img := image.NewNRGBA(image.Rect(0, 0, proj.w, proj.h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: oceanColor}, image.Point{}, draw.Src)

	for _, f := range r.features {
		switch {
		case f.Geometry.IsPolygon():
			r.drawPolygon(img, proj, f.Geometry.Polygon)
		case f.Geometry.IsMultiPolygon():
			for _, poly := range f.Geometry.MultiPolygon {
				r.drawPolygon(img, proj, poly)
			}
		}
	}

	drawMarker(img, proj, marker)
	r.drawAttribution(img)

	if err := imaging.Save(img, outPath); err != nil {
		return fmt.Errorf("saving map %s: %w", outPath, err)
	}
	r.log.Debugw("rendered city map", "path", outPath,
		"crosses_antimeridian", extent.CrossesAntimeridian())
	return nil
}

func (r *Renderer) drawPolygon(img *image.NRGBA, proj projection, rings [][][]float64) {
	fillPolygon(img, proj, rings, landColor)
	for _, ring := range rings {
		drawRing(img, proj, ring, outlineColor)
	}
}

func (r *Renderer) drawAttribution(img *image.NRGBA) {
	b := img.Bounds()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(creditColor),
		Face: r.face,
		Dot:  fixed.P(6, b.Max.Y-6),
	}
	d.DrawString(attributionText)
}

// projection maps lat/lng onto pixel coordinates with an equirectangular
// projection over one extent. For a crossing extent, longitudes are measured
// eastward from MinLng so the map is contiguous around ±180.
type projection struct {
	extent geo.Rect
	w, h   int
	ppdX   float64 // pixels per degree of longitude
	ppdY   float64
}

func newProjection(extent geo.Rect, width int) projection {
	lngSpan := extent.LngSpan()
	latSpan := extent.LatSpan()
	if lngSpan <= 0 {
		lngSpan = 1
	}
	if latSpan <= 0 {
		latSpan = 1
	}
	height := int(math.Round(float64(width) * latSpan / lngSpan))
	if height < 1 {
		height = 1
	}
	return projection{
		extent: extent,
		w:      width,
		h:      height,
		ppdX:   float64(width) / lngSpan,
		ppdY:   float64(height) / latSpan,
	}
}

func (p projection) point(lat, lng float64) (x, y float64) {
	dLng := lng - p.extent.MinLng
	for dLng < 0 {
		dLng += 360
	}
	for dLng >= 360 {
		dLng -= 360
	}
	x = dLng * p.ppdX
	y = (p.extent.MaxLat - lat) * p.ppdY
	return x, y
}

// fillPolygon rasterises a polygon (outer ring plus holes) with a scanline
// even-odd fill.
func fillPolygon(img *image.NRGBA, proj projection, rings [][][]float64, c color.NRGBA) {
	type pt struct{ x, y float64 }
	projected := make([][]pt, 0, len(rings))
	minY, maxY := float64(proj.h), 0.0
	for _, ring := range rings {
		ppts := make([]pt, 0, len(ring))
		for _, p := range ring {
			x, y := proj.point(p[1], p[0])
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			ppts = append(ppts, pt{x, y})
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
		projected = append(projected, ppts)
	}

	for y := int(minY); y <= int(maxY); y++ {
		if y < 0 || y >= proj.h {
			continue
		}
		fy := float64(y)
		var nodes []int
		for _, ring := range projected {
			for i := 0; i < len(ring); i++ {
				j := (i + 1) % len(ring)
				if (ring[i].y < fy && ring[j].y >= fy) || (ring[j].y < fy && ring[i].y >= fy) {
					nodeX := ring[i].x + (fy-ring[i].y)/(ring[j].y-ring[i].y)*(ring[j].x-ring[i].x)
					nodes = append(nodes, int(nodeX))
				}
			}
		}
		sort.Ints(nodes)
		for i := 0; i+1 < len(nodes); i += 2 {
			xs, xe := nodes[i], nodes[i+1]
			if xs < 0 {
				xs = 0
			}
			if xe > proj.w {
				xe = proj.w
			}
			for x := xs; x < xe; x++ {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

// drawRing strokes a ring's edges with Bresenham lines.
func drawRing(img *image.NRGBA, proj projection, ring [][]float64, c color.NRGBA) {
	for i := 0; i < len(ring)-1; i++ {
		x1, y1 := proj.point(ring[i][1], ring[i][0])
		x2, y2 := proj.point(ring[i+1][1], ring[i+1][0])
		if math.IsNaN(x1) || math.IsNaN(y1) || math.IsNaN(x2) || math.IsNaN(y2) {
			continue
		}
		// Edges that wrap all the way around the projected plane are
		// artefacts of the modular longitude, not real borders.
		if math.Abs(x2-x1) > float64(proj.w) {
			continue
		}
		drawLine(img, int(x1), int(y1), int(x2), int(y2), c)
	}
}

func drawLine(img *image.NRGBA, x1, y1, x2, y2 int, c color.NRGBA) {
	b := img.Bounds()
	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		if x1 >= b.Min.X && x1 < b.Max.X && y1 >= b.Min.Y && y1 < b.Max.Y {
			img.SetNRGBA(x1, y1, c)
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func drawMarker(img *image.NRGBA, proj projection, marker s2.LatLng) {
	cx, cy := proj.point(marker.Lat.Degrees(), marker.Lng.Degrees())
	for dy := -markerRadius; dy <= markerRadius; dy++ {
		for dx := -markerRadius; dx <= markerRadius; dx++ {
			if dx*dx+dy*dy > markerRadius*markerRadius {
				continue
			}
			x, y := int(cx)+dx, int(cy)+dy
			if x >= 0 && x < proj.w && y >= 0 && y < proj.h {
				img.SetNRGBA(x, y, markerColor)
			}
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
