package geo

import (
	"testing"

	"github.com/golang/geo/s2"
	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type BBoxSuite struct {
	clusters map[string][]s2.LatLng
}

var _ = Suite(&BBoxSuite{})

func (s *BBoxSuite) SetUpSuite(c *C) {
	s.clusters = map[string][]s2.LatLng{
		"france": {
			s2.LatLngFromDegrees(48.85, 2.35),
			s2.LatLngFromDegrees(43.3, 5.37),
			s2.LatLngFromDegrees(47.22, -1.55),
		},
		"new zealand": {
			s2.LatLngFromDegrees(-36.85, 174.76),
			s2.LatLngFromDegrees(-45.87, 170.5),
			s2.LatLngFromDegrees(-43.9, -176.5), // Chatham Islands
		},
	}
}

func (s *BBoxSuite) TestNoCrossing(c *C) {
	r := BoundingBox(s.clusters["france"])
	c.Assert(r.CrossesAntimeridian(), Equals, false)
	c.Assert(r.MinLng, Equals, -1.55)
	c.Assert(r.MaxLng, Equals, 5.37)
	c.Assert(r.CenterLng(), Equals, 0.0)
}

func (s *BBoxSuite) TestCrossing(c *C) {
	r := BoundingBox(s.clusters["new zealand"])
	c.Assert(r.CrossesAntimeridian(), Equals, true)
	c.Assert(r.MinLng, Equals, 170.5)
	c.Assert(r.MaxLng, Equals, -176.5)
	c.Assert(r.CenterLng(), Equals, 180.0)
	c.Assert(r.LngSpan() < 360, Equals, true)
}

func (s *BBoxSuite) TestEmpty(c *C) {
	r := BoundingBox(nil)
	c.Assert(r, Equals, Rect{})
}
