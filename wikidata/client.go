// Package wikidata is a thin client for the Wikidata action API and query
// service, covering exactly what the deck pipeline needs: entity snapshots,
// locale-resolved labels and links, temporal filtering of subdivisions, and
// a ranked-city query.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIURL    = "https://www.wikidata.org/w/api.php"
	defaultSPARQLURL = "https://query.wikidata.org/sparql"
	defaultUserAgent = "geodeck/1.0 (geography flashcard builder)"
)

// Client talks to Wikidata. Construct one with NewClient and pass it down;
// there is no package-level instance.
type Client struct {
	apiURL    string
	sparqlURL string
	userAgent string
	hc        *http.Client
	log       *zap.SugaredLogger

	// Entities are immutable per run; cache them so a capital referenced by
	// several subdivisions is fetched once.
	cache map[string]*Entity
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL overrides the action API endpoint.
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithSPARQLURL overrides the query service endpoint.
func WithSPARQLURL(u string) Option {
	return func(c *Client) { c.sparqlURL = u }
}

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient substitutes the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogger attaches a logger for fallback and progress diagnostics.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient returns a ready-to-use Wikidata client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		apiURL:    defaultAPIURL,
		sparqlURL: defaultSPARQLURL,
		userAgent: defaultUserAgent,
		hc:        &http.Client{Timeout: 30 * time.Second},
		log:       zap.NewNop().Sugar(),
		cache:     make(map[string]*Entity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire format of wbgetentities
type entityResponse struct {
	Entities map[string]rawEntity `json:"entities"`
	Error    *apiError            `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type rawEntity struct {
	ID     string `json:"id"`
	Labels map[string]struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	} `json:"labels"`
	Sitelinks map[string]struct {
		Site  string `json:"site"`
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"sitelinks"`
	Claims map[string][]struct {
		MainSnak struct {
			SnakType  string `json:"snaktype"`
			DataValue struct {
				Type  string          `json:"type"`
				Value json.RawMessage `json:"value"`
			} `json:"datavalue"`
		} `json:"mainsnak"`
	} `json:"claims"`
}

// Entity fetches one item snapshot by Q-identifier, serving repeats from the
// per-run cache.
func (c *Client) Entity(ctx context.Context, id string) (*Entity, error) {
	if e, ok := c.cache[id]; ok {
		return e, nil
	}

	q := url.Values{}
	q.Set("action", "wbgetentities")
	q.Set("ids", id)
	q.Set("props", "labels|claims|sitelinks")
	q.Set("format", "json")

	var resp entityResponse
	if err := c.getJSON(ctx, c.apiURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching entity %s: %w", id, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("fetching entity %s: %s (%s)", id, resp.Error.Info, resp.Error.Code)
	}
	raw, ok := resp.Entities[id]
	if !ok {
		// Redirected ids come back under the target id; take whatever the
		// API returned for a single-id request.
		for _, v := range resp.Entities {
			raw = v
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("fetching entity %s: not in response", id)
	}

	e := convertEntity(raw)
	c.cache[id] = e
	c.log.Debugw("fetched entity", "id", e.ID, "claims", len(e.claims))
	return e, nil
}

func convertEntity(raw rawEntity) *Entity {
	e := &Entity{
		ID:        raw.ID,
		Labels:    make(map[string]string, len(raw.Labels)),
		Sitelinks: make(map[string]Sitelink, len(raw.Sitelinks)),
		claims:    make(map[string][]snak, len(raw.Claims)),
	}
	for lang, l := range raw.Labels {
		e.Labels[lang] = l.Value
	}
	for site, sl := range raw.Sitelinks {
		e.Sitelinks[site] = Sitelink{Site: sl.Site, Title: sl.Title, URL: sl.URL}
	}
	for prop, statements := range raw.Claims {
		for _, st := range statements {
			e.claims[prop] = append(e.claims[prop], snak{
				snakType:  st.MainSnak.SnakType,
				valueType: st.MainSnak.DataValue.Type,
				raw:       st.MainSnak.DataValue.Value,
			})
		}
	}
	return e
}

// Subdivisions returns the region's administrative subdivisions (P150) whose
// validity window contains asOf. Children without temporal bounds are always
// included; children inaugurated after, or dissolved before, the reference
// date are skipped.
func (c *Client) Subdivisions(ctx context.Context, region *Entity, asOf time.Time) ([]*Entity, error) {
	ids := region.Items(PropSubdivisions)
	subs := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		sub, err := c.Entity(ctx, id)
		if err != nil {
			return nil, err
		}
		if !sub.ActiveAt(asOf) {
			c.log.Debugw("skipping inactive subdivision", "id", sub.ID, "as_of", asOf.Format("2006-01-02"))
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// getJSON performs a GET with the client's User-Agent and decodes the JSON
// body into out.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", u, err)
	}
	return nil
}
