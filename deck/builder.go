// Package deck orchestrates the pipeline from a Wikidata region id to a
// finished .apkg on disk: entity lookups, image acquisition, note assembly
// and the single package write at the end.
package deck

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/geo/s2"
	"go.uber.org/zap"

	"geodeck/anki"
	"geodeck/geo"
	"geodeck/mapimg"
	"geodeck/wikidata"
)

// Options selects what to build and where to put the intermediate files.
type Options struct {
	Region   string // Wikidata Q-item id
	Language string
	Cities   bool // city deck instead of subdivision deck
	Limit    int  // city mode only
	ImageDir string
	DataDir  string
	AsOf     time.Time // reference date for temporal filtering
}

// Builder runs one deck build end to end.
type Builder struct {
	client  *wikidata.Client
	fetcher *mapimg.Fetcher
	log     *zap.SugaredLogger
	opts    Options
}

// New assembles a Builder. The fetcher must write into opts.ImageDir.
func New(client *wikidata.Client, fetcher *mapimg.Fetcher, log *zap.SugaredLogger, opts Options) *Builder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Language == "" {
		opts.Language = wikidata.DefaultLanguage
	}
	if opts.AsOf.IsZero() {
		opts.AsOf = time.Now()
	}
	return &Builder{client: client, fetcher: fetcher, log: log, opts: opts}
}

// Run builds the deck and returns the path of the written .apkg.
func (b *Builder) Run(ctx context.Context) (string, error) {
	region, err := b.client.Entity(ctx, b.opts.Region)
	if err != nil {
		return "", fmt.Errorf("loading region %s: %w", b.opts.Region, err)
	}
	regionLabel := b.client.Label(region, b.opts.Language)
	b.log.Infow("building deck", "region", region.ID, "label", regionLabel)

	if b.opts.Cities {
		return b.buildCityDeck(ctx, region, regionLabel)
	}
	return b.buildSubdivisionDeck(ctx, region, regionLabel)
}

type subdivisionMaps struct {
	entity *wikidata.Entity
	origin string
	raster string
}

func (b *Builder) buildSubdivisionDeck(ctx context.Context, region *wikidata.Entity, regionLabel string) (string, error) {
	lang := b.opts.Language
	subs, err := b.client.Subdivisions(ctx, region, b.opts.AsOf)
	if err != nil {
		return "", err
	}

	var built []subdivisionMaps
	for _, sub := range subs {
		label := b.client.Label(sub, lang)
		url := sub.LocatorMapURL()
		if url == "" {
			b.log.Warnw("no locator map, skipping", "id", sub.ID, "label", label)
			continue
		}
		b.log.Debugw("fetching locator map", "id", sub.ID, "label", label)
		origin, raster, err := b.fetcher.LocatorMap(ctx, url, safeFileName(label))
		if err != nil {
			return "", fmt.Errorf("locator map for %s: %w", sub.ID, err)
		}
		built = append(built, subdivisionMaps{entity: sub, origin: origin, raster: raster})
	}

	rasters := make([]string, 0, len(built))
	for _, sm := range built {
		rasters = append(rasters, sm.raster)
	}

	var media []string
	regionMapField := ""
	bgPath := filepath.Join(b.opts.ImageDir, safeFileName(regionLabel)+".png")
	switch err := mapimg.Background(rasters, bgPath); {
	case err == nil:
		media = append(media, bgPath)
		regionMapField = imgTag(bgPath)
	case errors.Is(err, mapimg.ErrNoBackground):
		b.log.Warnw("not enough maps to infer a region background")
	default:
		return "", err
	}

	deckName := "Administrative Subdivisions of " + regionLabel
	d := anki.NewDeck(deckName)
	model := anki.SubdivisionModel()

	for _, sm := range built {
		label := b.client.Label(sm.entity, lang)
		smallest, err := mapimg.SmallestFile(sm.origin, sm.raster)
		if err != nil {
			return "", err
		}
		media = append(media, smallest)

		capitalLabel := ""
		if capitalID, ok := sm.entity.Item(wikidata.PropCapital); ok {
			capital, err := b.client.Entity(ctx, capitalID)
			if err != nil {
				b.log.Warnw("capital lookup failed", "id", capitalID, "error", err)
			} else {
				capitalLabel = b.client.Label(capital, lang)
			}
		}

		b.log.Debugw("building cards", "id", sm.entity.ID, "label", label, "capital", capitalLabel)
		d.AddNote(anki.Note{
			Model: model,
			GUID:  anki.GUIDFor(sm.entity.ID, lang),
			Fields: []string{
				label,
				regionLabel,
				capitalLabel,
				imgTag(smallest),
				regionMapField,
				sm.entity.ID,
				lang,
				b.client.Wikilink(sm.entity, lang),
			},
		})
	}

	return b.write(deckName, d, media)
}

func (b *Builder) buildCityDeck(ctx context.Context, region *wikidata.Entity, regionLabel string) (string, error) {
	lang := b.opts.Language
	cities, err := b.client.TopCities(ctx, region.ID, lang, b.opts.Limit)
	if err != nil {
		return "", err
	}
	if len(cities) == 0 {
		return "", fmt.Errorf("no ranked cities found for %s", region.ID)
	}

	boundaries, err := b.fetcher.EnsureBoundaries(ctx, b.opts.DataDir)
	if err != nil {
		return "", err
	}
	renderer, err := mapimg.NewRenderer(boundaries, b.log)
	if err != nil {
		return "", err
	}

	var countryExtent geo.Rect
	haveExtent := false
	if isos := region.Strings(wikidata.PropCountryCode); len(isos) > 0 {
		countryExtent, haveExtent = renderer.CountryExtent(isos[0])
		if !haveExtent {
			b.log.Warnw("no boundary polygons for country code", "iso", isos[0])
		}
	}

	deckName := "Largest Cities of " + regionLabel
	d := anki.NewDeck(deckName)
	model := anki.CityModel()
	var media []string

	for _, city := range cities {
		extent := cityExtent(countryExtent, haveExtent, city.Location)
		outPath := filepath.Join(b.opts.ImageDir, mapimg.CityMapFilename(city.Location))
		b.log.Debugw("rendering city map", "id", city.ID, "label", city.Label, "rank", city.Rank)
		if err := renderer.RenderCity(extent, city.Location, outPath); err != nil {
			return "", fmt.Errorf("rendering map for %s: %w", city.ID, err)
		}
		media = append(media, outPath)

		wikilink := ""
		if entity, err := b.client.Entity(ctx, city.ID); err != nil {
			b.log.Warnw("city entity lookup failed", "id", city.ID, "error", err)
		} else {
			wikilink = b.client.Wikilink(entity, lang)
		}

		d.AddNote(anki.Note{
			Model: model,
			GUID:  anki.GUIDFor(city.ID, lang),
			Fields: []string{
				city.Label,
				regionLabel,
				FormatPopulation(city.Population),
				city.AdminLabel,
				imgTag(outPath),
				city.ID,
				lang,
				wikilink,
			},
		})
	}

	return b.write(deckName, d, media)
}

// cityExtent frames one city: the whole country plus the city point, with a
// one-degree margin. Without country polygons the frame is just the margin
// around the city.
func cityExtent(country geo.Rect, haveCountry bool, city s2.LatLng) geo.Rect {
	points := []s2.LatLng{city}
	if haveCountry {
		points = append(points,
			s2.LatLngFromDegrees(country.MinLat, country.MinLng),
			s2.LatLngFromDegrees(country.MaxLat, country.MaxLng),
		)
	}
	return geo.BoundingBox(points).Expand(1)
}

func (b *Builder) write(deckName string, d *anki.Deck, media []string) (string, error) {
	out := safeFileName(deckName) + ".apkg"
	if err := anki.WritePackage(out, d, media); err != nil {
		return "", err
	}
	b.log.Infow("wrote deck", "path", out, "notes", len(d.Notes()))
	return out, nil
}

func imgTag(path string) string {
	return fmt.Sprintf("<img src=%q>", filepath.Base(path))
}

// safeFileName strips path separators from a locale label so it can be used
// as a file name. Deck and note content keep the raw label.
func safeFileName(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	return strings.ReplaceAll(s, "\\", "-")
}
