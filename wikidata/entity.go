package wikidata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/s2"
)

// Properties used by the deck pipeline.
const (
	PropSubdivisions = "P150" // contains the administrative territorial entity
	PropLocatorMap   = "P242" // locator map image
	PropInception    = "P571"
	PropStartTime    = "P580"
	PropDissolved    = "P576"
	PropEndTime      = "P582"
	PropCapital      = "P36"
	PropCoordinate   = "P625"
	PropPopulation   = "P1082"
	PropCountryCode  = "P297" // ISO 3166-1 alpha-2
)

// ErrNoValue is returned when a claim exists but carries no usable value
// (novalue/somevalue snaks, or a datavalue this client cannot decode).
// Callers that can live without the property catch it and move on.
var ErrNoValue = errors.New("wikidata: no usable value")

// Entity is a read-only snapshot of a Wikidata item: labels, sitelinks and
// claims as fetched once per run.
type Entity struct {
	ID        string
	Labels    map[string]string
	Sitelinks map[string]Sitelink
	claims    map[string][]snak
}

// Sitelink is one wiki's page for an entity.
type Sitelink struct {
	Site  string
	Title string
	URL   string
}

// snak is the value part of a single claim statement.
type snak struct {
	snakType  string // value, novalue, somevalue
	valueType string // wikibase-entityid, time, string, quantity, globecoordinate
	raw       json.RawMessage
}

// Item returns the first item-valued claim for prop, if any.
func (e *Entity) Item(prop string) (string, bool) {
	items := e.Items(prop)
	if len(items) == 0 {
		return "", false
	}
	return items[0], true
}

// Items returns all item ids claimed for prop, in statement order.
func (e *Entity) Items(prop string) []string {
	var out []string
	for _, s := range e.claims[prop] {
		if s.valueType != "wikibase-entityid" {
			continue
		}
		var v struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(s.raw, &v); err != nil || v.ID == "" {
			continue
		}
		out = append(out, v.ID)
	}
	return out
}

// Strings returns all string-valued claims for prop (e.g. Commons media
// filenames for P242).
func (e *Entity) Strings(prop string) []string {
	var out []string
	for _, s := range e.claims[prop] {
		if s.valueType != "string" {
			continue
		}
		var v string
		if err := json.Unmarshal(s.raw, &v); err != nil || v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Quantity returns the first quantity-valued claim for prop.
func (e *Entity) Quantity(prop string) (float64, bool) {
	for _, s := range e.claims[prop] {
		if s.valueType != "quantity" {
			continue
		}
		var v struct {
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(s.raw, &v); err != nil {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimPrefix(v.Amount, "+"), 64)
		if err != nil {
			continue
		}
		return f, true
	}
	return 0, false
}

// Coordinate returns the first globe-coordinate claim for prop.
func (e *Entity) Coordinate(prop string) (s2.LatLng, bool) {
	for _, s := range e.claims[prop] {
		if s.valueType != "globecoordinate" {
			continue
		}
		var v struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := json.Unmarshal(s.raw, &v); err != nil {
			continue
		}
		return s2.LatLngFromDegrees(v.Latitude, v.Longitude), true
	}
	return s2.LatLng{}, false
}

// Time returns the first time-valued claim for prop as a civil date.
//
// Wikidata encodes partial dates with precision markers: a year-precision
// value (precision 9) is mapped to January 1 of that year, month precision
// (10) to the first of the month. Snaks without a decodable datavalue yield
// ErrNoValue so callers can treat the property as absent.
func (e *Entity) Time(prop string) (time.Time, error) {
	claims := e.claims[prop]
	if len(claims) == 0 {
		return time.Time{}, ErrNoValue
	}
	for _, s := range claims {
		if s.valueType != "time" {
			continue
		}
		var v struct {
			Time      string `json:"time"`
			Precision int    `json:"precision"`
		}
		if err := json.Unmarshal(s.raw, &v); err != nil {
			continue
		}
		t, err := parseWikidataTime(v.Time, v.Precision)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, ErrNoValue
}

// parseWikidataTime decodes the "+1991-06-25T00:00:00Z" format, padding
// zeroed-out month/day components according to the precision.
func parseWikidataTime(s string, precision int) (time.Time, error) {
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "-") {
		return time.Time{}, fmt.Errorf("BCE date %q not supported", s)
	}
	datePart, _, ok := strings.Cut(s, "T")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed time value %q", s)
	}
	parts := strings.SplitN(datePart, "-", 3)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("malformed date %q", datePart)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed year in %q", datePart)
	}
	month, _ := strconv.Atoi(parts[1])
	day, _ := strconv.Atoi(parts[2])

	// Precision 9 = year, 10 = month, 11 = day. Coarser values leave the
	// finer fields as zero, which time.Date would interpret as the previous
	// period; treat a bare year as January 1 of that year.
	if precision <= 9 || month == 0 {
		month, day = 1, 1
	} else if precision == 10 || day == 0 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// ActiveAt reports whether the entity's validity window contains the given
// date. The window is defined by inception (P571) or start time (P580) and
// dissolution (P576) or end time (P582); an entity with no temporal bounds
// is always active.
func (e *Entity) ActiveAt(date time.Time) bool {
	for _, prop := range []string{PropInception, PropStartTime} {
		if t, err := e.Time(prop); err == nil && t.After(date) {
			return false
		}
	}
	for _, prop := range []string{PropDissolved, PropEndTime} {
		if t, err := e.Time(prop); err == nil && t.Before(date) {
			return false
		}
	}
	return true
}

// CommonsImageURLs resolves string-valued image claims to stable
// upload-redirect URLs on Wikimedia Commons.
func (e *Entity) CommonsImageURLs(prop string) []string {
	names := e.Strings(prop)
	urls := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ReplaceAll(n, " ", "_")
		urls = append(urls, "https://commons.wikimedia.org/wiki/Special:FilePath/"+n)
	}
	return urls
}

// LocatorMapURL picks the entity's locator map (P242), preferring a vector
// source. Returns empty string when the entity declares no map at all.
func (e *Entity) LocatorMapURL() string {
	urls := e.CommonsImageURLs(PropLocatorMap)
	for _, u := range urls {
		if strings.HasSuffix(strings.ToLower(u), ".svg") {
			return u
		}
	}
	if len(urls) > 0 {
		return urls[0]
	}
	return ""
}
