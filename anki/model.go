// Package anki assembles Anki flashcard packages (.apkg files): note models
// with card templates, decks of notes, and the zipped SQLite collection that
// Anki imports.
package anki

// Field is a named note field.
type Field struct {
	Name string
}

// Template is one card layout: a question side and an answer side rendered
// from note fields.
type Template struct {
	Name string
	Qfmt string
	Afmt string
}

// Model describes a note type. The ID must stay stable across runs so that
// re-imports update notes in place instead of duplicating them.
type Model struct {
	ID        int64
	Name      string
	Fields    []Field
	Templates []Template
	CSS       string
}

// Note is a single filled-in model instance. Fields are positional, matching
// the model's field order. GUID identifies the note across imports; notes
// sharing a GUID overwrite each other.
type Note struct {
	Model  *Model
	Fields []string
	GUID   string
}

// Model ids were generated once at random from [1<<30, 1<<31) and are part
// of the persistent data format.
const (
	subdivisionModelID = 1175192202
	cityModelID        = 1604800710
)

const sourceFooter = `
	<iframe src="{{WikipediaLink}}"
		style="height: 100vh; width:100%;" seamless="seamless"></iframe>
	<a href="https://www.wikidata.org/wiki/{{WikidataId}}">
		Data source: Wikidata
	</a>
`

const deckCSS = `
	.card {
		font-size: 20px;
		text-align: center;
	}
	.value > img {
		max-width: 100%;
		height: auto;
	}
	#region {
		color: gray;
		font-size: 20px;
	}
	#subdivision {
		font-size: 24px;
	}
	#city {
		font-size: 24px;
	}
	#type {
		color: gray;
		font-size: 20px;
	}
	#capital {
		font-size: 24px;
	}
	#population {
		font-size: 24px;
	}
`

// SubdivisionModel returns the note type for administrative subdivisions.
// Field order matters; GUIDs are derived from WikidataId and Language.
func SubdivisionModel() *Model {
	return &Model{
		ID:   subdivisionModelID,
		Name: "Subdivision of a Region",
		Fields: []Field{
			{Name: "Subdivision"},
			{Name: "Region"},
			{Name: "Capital"},
			{Name: "SubdivisionMap"},
			{Name: "RegionMap"},
			{Name: "WikidataId"},
			{Name: "Language"},
			{Name: "WikipediaLink"},
		},
		Templates: []Template{
			{
				Name: "Name from Map",
				Qfmt: `
					<div id="region">{{Region}}</div>
					<div id="subdivision">?</div>
					<hr>
					<div class="value">{{SubdivisionMap}}</div>
				`,
				Afmt: `
					<div id="region">{{Region}}</div>
					<div id="subdivision">{{Subdivision}}</div>
					<hr>
					<div class="value">{{SubdivisionMap}}</div>
					<hr>` + sourceFooter,
			},
			{
				Name: "Map from Name",
				Qfmt: `
					<div id="region">{{Region}}</div>
					<div id="subdivision">{{Subdivision}}</div>
					<hr>
					<div class="value">{{RegionMap}}</div>
				`,
				Afmt: `
					<div id="region">{{Region}}</div>
					<div id="subdivision">{{Subdivision}}</div>
					<hr>
					<div class="value">{{SubdivisionMap}}</div>
					<hr>` + sourceFooter,
			},
			{
				Name: "Capital from Subdivision",
				Qfmt: `
				{{#Capital}}
					<div id="region">{{Region}}</div>
					<div id="subdivision">{{Subdivision}}</div>
					<hr>
					<div id="type">Capital</div>
					<div id="capital">?</div>
				{{/Capital}}
				`,
				Afmt: `
					<div id="region">{{Region}}</div>
					<div id="subdivision">{{Subdivision}}</div>
					<hr>
					<div id="type">Capital</div>
					<div id="capital">{{Capital}}</div>` + sourceFooter,
			},
			{
				Name: "Subdivision from Capital",
				Qfmt: `
				{{#Capital}}
					<div id="region">{{Region}}</div>
					<div id="subdivision">?</div>
					<hr>
					<div id="type">Capital</div>
					<div id="capital">{{Capital}}</div>
				{{/Capital}}
				`,
				Afmt: `
					<div id="region">{{Region}}</div>
					<div id="subdivision">{{Subdivision}}</div>
					<hr>
					<div id="type">Capital</div>
					<div id="capital">{{Capital}}</div>` + sourceFooter,
			},
		},
		CSS: deckCSS,
	}
}

// CityModel returns the note type for the largest-cities decks.
func CityModel() *Model {
	return &Model{
		ID:   cityModelID,
		Name: "City of a Region",
		Fields: []Field{
			{Name: "City"},
			{Name: "Region"},
			{Name: "Population"},
			{Name: "AdminDivision"},
			{Name: "CityMap"},
			{Name: "WikidataId"},
			{Name: "Language"},
			{Name: "WikipediaLink"},
		},
		Templates: []Template{
			{
				Name: "Name from Map",
				Qfmt: `
					<div id="region">{{Region}}</div>
					<div id="city">?</div>
					<hr>
					<div class="value">{{CityMap}}</div>
				`,
				Afmt: `
					<div id="region">{{Region}}</div>
					<div id="city">{{City}}</div>
					<div id="type">{{AdminDivision}}</div>
					<hr>
					<div class="value">{{CityMap}}</div>
					<hr>` + sourceFooter,
			},
			{
				Name: "Map from Name",
				Qfmt: `
					<div id="region">{{Region}}</div>
					<div id="city">{{City}}</div>
				`,
				Afmt: `
					<div id="region">{{Region}}</div>
					<div id="city">{{City}}</div>
					<div id="type">{{AdminDivision}}</div>
					<hr>
					<div class="value">{{CityMap}}</div>
					<hr>` + sourceFooter,
			},
			{
				Name: "Population from Name",
				Qfmt: `
				{{#Population}}
					<div id="region">{{Region}}</div>
					<div id="city">{{City}}</div>
					<hr>
					<div id="type">Population</div>
					<div id="population">?</div>
				{{/Population}}
				`,
				Afmt: `
					<div id="region">{{Region}}</div>
					<div id="city">{{City}}</div>
					<hr>
					<div id="type">Population</div>
					<div id="population">{{Population}}</div>` + sourceFooter,
			},
		},
		CSS: deckCSS,
	}
}

// Deck is an ordered collection of notes sharing a deterministic id derived
// from the deck name.
type Deck struct {
	ID    int64
	Name  string
	notes []Note
	index map[string]int
}

// NewDeck builds an empty deck named name, with DeckID(name) as its id.
func NewDeck(name string) *Deck {
	return &Deck{
		ID:    DeckID(name),
		Name:  name,
		index: make(map[string]int),
	}
}

// AddNote appends a note. A note whose GUID is already present replaces the
// earlier one in place, so of several writes the last wins.
func (d *Deck) AddNote(n Note) {
	if i, ok := d.index[n.GUID]; ok {
		d.notes[i] = n
		return
	}
	d.index[n.GUID] = len(d.notes)
	d.notes = append(d.notes, n)
}

// Notes returns the deck's notes in insertion order.
func (d *Deck) Notes() []Note {
	return d.notes
}
