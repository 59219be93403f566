package wikidata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// City is one row of the ranked-city query: enough to render a marker and
// build a note without further entity fetches.
type City struct {
	ID         string // Q-identifier
	Label      string
	Population int64
	Location   s2.LatLng
	AdminLabel string // parent administrative division, may be empty
	Rank       int    // 1-based rank by population within the region
}

// cityQuery ranks a country's cities by population. Label resolution runs
// server-side with the requested language first and English as backstop.
const cityQuery = `SELECT ?city ?cityLabel ?population ?coord ?adminLabel WHERE {
  ?city wdt:P31/wdt:P279* wd:Q515 ;
        wdt:P17 wd:%s ;
        wdt:P1082 ?population ;
        wdt:P625 ?coord .
  OPTIONAL { ?city wdt:P131 ?admin . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "%s,en". }
}
ORDER BY DESC(?population)
LIMIT %d`

// wire format of the SPARQL JSON results
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// TopCities returns the region's cities ranked by population, largest first.
// Rows with unparseable coordinates or population are dropped; duplicate ids
// (cities with several population statements) keep their first, highest-
// ranked row.
func (c *Client) TopCities(ctx context.Context, regionID, lang string, limit int) ([]City, error) {
	query := fmt.Sprintf(cityQuery, regionID, lang, limit)
	q := url.Values{}
	q.Set("query", query)
	q.Set("format", "json")

	var resp sparqlResponse
	if err := c.getJSON(ctx, c.sparqlURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("ranked city query for %s: %w", regionID, err)
	}

	seen := make(map[string]bool)
	var cities []City
	for _, b := range resp.Results.Bindings {
		id := entityIDFromURI(b["city"].Value)
		if id == "" || seen[id] {
			continue
		}
		pop, err := strconv.ParseInt(b["population"].Value, 10, 64)
		if err != nil {
			c.log.Debugw("dropping city with bad population", "id", id, "value", b["population"].Value)
			continue
		}
		loc, err := parseWKTPoint(b["coord"].Value)
		if err != nil {
			c.log.Debugw("dropping city with bad coordinates", "id", id, "value", b["coord"].Value)
			continue
		}
		seen[id] = true
		cities = append(cities, City{
			ID:         id,
			Label:      b["cityLabel"].Value,
			Population: pop,
			Location:   loc,
			AdminLabel: b["adminLabel"].Value,
			Rank:       len(cities) + 1,
		})
	}
	return cities, nil
}

// entityIDFromURI extracts "Q90" from "http://www.wikidata.org/entity/Q90".
func entityIDFromURI(uri string) string {
	idx := strings.LastIndex(uri, "/")
	if idx < 0 || idx == len(uri)-1 {
		return ""
	}
	return uri[idx+1:]
}

// parseWKTPoint decodes the "Point(lng lat)" literal the query service
// returns for globe coordinates.
func parseWKTPoint(s string) (s2.LatLng, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "Point("), ")")
	lngStr, latStr, found := strings.Cut(inner, " ")
	if !found {
		return s2.LatLng{}, fmt.Errorf("malformed WKT point %q", s)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return s2.LatLng{}, fmt.Errorf("malformed longitude in %q", s)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return s2.LatLng{}, fmt.Errorf("malformed latitude in %q", s)
	}
	return s2.LatLngFromDegrees(lat, lng), nil
}
