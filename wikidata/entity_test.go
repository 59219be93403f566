package wikidata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entityFromJSON builds an Entity from wbgetentities-shaped JSON.
func entityFromJSON(t *testing.T, data string) *Entity {
	t.Helper()
	var raw rawEntity
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	return convertEntity(raw)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseWikidataTime(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		precision int
		want      time.Time
		wantErr   bool
	}{
		{"day precision", "+1991-06-25T00:00:00Z", 11, date(1991, time.June, 25), false},
		{"month precision", "+1991-06-00T00:00:00Z", 10, date(1991, time.June, 1), false},
		{"year precision maps to january 1", "+1991-00-00T00:00:00Z", 9, date(1991, time.January, 1), false},
		{"day precision with zero day pads", "+1991-06-00T00:00:00Z", 11, date(1991, time.June, 1), false},
		{"bce rejected", "-0044-03-15T00:00:00Z", 11, time.Time{}, true},
		{"garbage rejected", "not a date", 11, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWikidataTime(tt.value, tt.precision)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestEntityTimeNoValue(t *testing.T) {
	e := entityFromJSON(t, `{
		"id": "Q1",
		"claims": {
			"P571": [{"mainsnak": {"snaktype": "novalue"}}]
		}
	}`)
	_, err := e.Time(PropInception)
	assert.ErrorIs(t, err, ErrNoValue)

	_, err = e.Time(PropDissolved)
	assert.ErrorIs(t, err, ErrNoValue, "absent property")
}

func TestActiveAt(t *testing.T) {
	const claimTmpl = `{"id": "Q1", "claims": {%s}}`
	timeClaim := func(prop, value string, precision int) string {
		return `"` + prop + `": [{"mainsnak": {"snaktype": "value", "datavalue": {"type": "time",
			"value": {"time": "` + value + `", "precision": ` + strconv.Itoa(precision) + `}}}}]`
	}
	ref := date(2020, time.June, 1)

	tests := []struct {
		name   string
		claims string
		want   bool
	}{
		{"no temporal bounds", "", true},
		{"inception before ref", timeClaim("P571", "+1990-01-01T00:00:00Z", 11), true},
		{"inception after ref", timeClaim("P571", "+2021-01-01T00:00:00Z", 11), false},
		{"start time after ref", timeClaim("P580", "+2021-01-01T00:00:00Z", 11), false},
		{"dissolved before ref", timeClaim("P576", "+2001-01-01T00:00:00Z", 11), false},
		{"end time before ref", timeClaim("P582", "+2001-01-01T00:00:00Z", 11), false},
		{"end time after ref", timeClaim("P582", "+2031-01-01T00:00:00Z", 11), true},
		{"bare dissolution year before ref", timeClaim("P576", "+2005-00-00T00:00:00Z", 9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entityFromJSON(t, fmt.Sprintf(claimTmpl, tt.claims))
			assert.Equal(t, tt.want, e.ActiveAt(ref))
		})
	}
}

func TestLocatorMapURLPrefersSVG(t *testing.T) {
	e := entityFromJSON(t, `{
		"id": "Q99",
		"claims": {
			"P242": [
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "string", "value": "Map of place.png"}}},
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "string", "value": "Map of place.svg"}}}
			]
		}
	}`)
	assert.Equal(t,
		"https://commons.wikimedia.org/wiki/Special:FilePath/Map_of_place.svg",
		e.LocatorMapURL())
}

func TestLocatorMapURLFirstRasterWhenNoSVG(t *testing.T) {
	e := entityFromJSON(t, `{
		"id": "Q99",
		"claims": {
			"P242": [
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "string", "value": "A.png"}}},
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "string", "value": "B.jpg"}}}
			]
		}
	}`)
	assert.Equal(t, "https://commons.wikimedia.org/wiki/Special:FilePath/A.png", e.LocatorMapURL())
}

func TestLocatorMapURLEmptyWhenNoMap(t *testing.T) {
	e := entityFromJSON(t, `{"id": "Q99", "claims": {}}`)
	assert.Equal(t, "", e.LocatorMapURL())
}

func TestEntityItemsAndQuantity(t *testing.T) {
	e := entityFromJSON(t, `{
		"id": "Q30",
		"claims": {
			"P150": [
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "wikibase-entityid", "value": {"id": "Q99"}}}},
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "wikibase-entityid", "value": {"id": "Q1261"}}}}
			],
			"P1082": [
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "quantity", "value": {"amount": "+331000000"}}}}
			],
			"P625": [
				{"mainsnak": {"snaktype": "value", "datavalue": {"type": "globecoordinate", "value": {"latitude": 39.8, "longitude": -98.6}}}}
			]
		}
	}`)
	assert.Equal(t, []string{"Q99", "Q1261"}, e.Items(PropSubdivisions))

	pop, ok := e.Quantity(PropPopulation)
	require.True(t, ok)
	assert.Equal(t, 331000000.0, pop)

	loc, ok := e.Coordinate(PropCoordinate)
	require.True(t, ok)
	assert.InDelta(t, 39.8, loc.Lat.Degrees(), 1e-9)
	assert.InDelta(t, -98.6, loc.Lng.Degrees(), 1e-9)
}
