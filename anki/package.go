package anki

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// collectionSchema is Anki's schema version 11 layout for collection.anki2.
const collectionSchema = `
CREATE TABLE col (
	id integer PRIMARY KEY,
	crt integer NOT NULL,
	mod integer NOT NULL,
	scm integer NOT NULL,
	ver integer NOT NULL,
	dty integer NOT NULL,
	usn integer NOT NULL,
	ls integer NOT NULL,
	conf text NOT NULL,
	models text NOT NULL,
	decks text NOT NULL,
	dconf text NOT NULL,
	tags text NOT NULL
);
CREATE TABLE notes (
	id integer PRIMARY KEY,
	guid text NOT NULL,
	mid integer NOT NULL,
	mod integer NOT NULL,
	usn integer NOT NULL,
	tags text NOT NULL,
	flds text NOT NULL,
	sfld integer NOT NULL,
	csum integer NOT NULL,
	flags integer NOT NULL,
	data text NOT NULL
);
CREATE TABLE cards (
	id integer PRIMARY KEY,
	nid integer NOT NULL,
	did integer NOT NULL,
	ord integer NOT NULL,
	mod integer NOT NULL,
	usn integer NOT NULL,
	type integer NOT NULL,
	queue integer NOT NULL,
	due integer NOT NULL,
	ivl integer NOT NULL,
	factor integer NOT NULL,
	reps integer NOT NULL,
	lapses integer NOT NULL,
	left integer NOT NULL,
	odue integer NOT NULL,
	odid integer NOT NULL,
	flags integer NOT NULL,
	data text NOT NULL
);
CREATE TABLE revlog (
	id integer PRIMARY KEY,
	cid integer NOT NULL,
	usn integer NOT NULL,
	ease integer NOT NULL,
	ivl integer NOT NULL,
	lastIvl integer NOT NULL,
	factor integer NOT NULL,
	time integer NOT NULL,
	type integer NOT NULL
);
CREATE TABLE graves (
	usn integer NOT NULL,
	oid integer NOT NULL,
	type integer NOT NULL
);
CREATE INDEX ix_notes_usn ON notes (usn);
CREATE INDEX ix_cards_usn ON cards (usn);
CREATE INDEX ix_revlog_usn ON revlog (usn);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_cid ON revlog (cid);
CREATE INDEX ix_notes_csum ON notes (csum);
`

const fieldSeparator = "\x1f"

// WritePackage writes the deck and its media files as an .apkg at path. The
// archive contains collection.anki2 plus media files renamed to consecutive
// numbers, mapped back to their real names by the "media" JSON manifest.
//
// The archive is assembled in a temporary file and renamed into place, so an
// interrupted run never leaves a truncated .apkg behind. Call it once, after
// every note has been added.
func WritePackage(path string, deck *Deck, mediaFiles []string) error {
	tmpDir, err := os.MkdirTemp("", "apkg-")
	if err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "collection.anki2")
	if err := writeCollection(dbPath, deck, time.Now()); err != nil {
		return err
	}

	tmpPkg, err := os.CreateTemp(filepath.Dir(path), ".apkg-*")
	if err != nil {
		return fmt.Errorf("creating package file: %w", err)
	}
	defer func() {
		tmpPkg.Close()
		os.Remove(tmpPkg.Name())
	}()

	if err := writeArchive(tmpPkg, dbPath, mediaFiles); err != nil {
		return err
	}
	if err := tmpPkg.Close(); err != nil {
		return fmt.Errorf("closing package file: %w", err)
	}
	if err := os.Rename(tmpPkg.Name(), path); err != nil {
		return fmt.Errorf("moving package into place: %w", err)
	}
	return nil
}

func writeArchive(w io.Writer, dbPath string, mediaFiles []string) error {
	zw := zip.NewWriter(w)

	if err := copyIntoZip(zw, "collection.anki2", dbPath); err != nil {
		return err
	}

	manifest := make(map[string]string, len(mediaFiles))
	for i, p := range mediaFiles {
		name := strconv.Itoa(i)
		manifest[name] = filepath.Base(p)
		if err := copyIntoZip(zw, name, p); err != nil {
			return err
		}
	}
	entry, err := zw.Create("media")
	if err != nil {
		return fmt.Errorf("creating media manifest: %w", err)
	}
	if err := json.NewEncoder(entry).Encode(manifest); err != nil {
		return fmt.Errorf("writing media manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

func copyIntoZip(zw *zip.Writer, name, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()
	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying %s into archive: %w", srcPath, err)
	}
	return nil
}

func writeCollection(dbPath string, deck *Deck, now time.Time) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening collection db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(collectionSchema); err != nil {
		return fmt.Errorf("creating collection schema: %w", err)
	}

	models := make(map[string]any)
	for _, n := range deck.Notes() {
		mid := strconv.FormatInt(n.Model.ID, 10)
		if _, ok := models[mid]; !ok {
			models[mid] = modelJSON(n.Model, now)
		}
	}

	colConf := map[string]any{
		"activeDecks":   []int64{1},
		"addToCur":      true,
		"collapseTime":  1200,
		"curDeck":       1,
		"curModel":      "",
		"dueCounts":     true,
		"estTimes":      true,
		"newBury":       true,
		"newSpread":     0,
		"nextPos":       1,
		"sortBackwards": false,
		"sortType":      "noteFld",
		"timeLim":       0,
	}
	if notes := deck.Notes(); len(notes) > 0 {
		colConf["curModel"] = strconv.FormatInt(notes[0].Model.ID, 10)
	}

	conf, err := json.Marshal(colConf)
	if err != nil {
		return fmt.Errorf("encoding conf: %w", err)
	}
	modelsJSON, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("encoding models: %w", err)
	}
	decksJSON, err := json.Marshal(decksMap(deck, now))
	if err != nil {
		return fmt.Errorf("encoding decks: %w", err)
	}
	dconfJSON, err := json.Marshal(defaultDeckConf())
	if err != nil {
		return fmt.Errorf("encoding dconf: %w", err)
	}

	nowMS := now.UnixMilli()
	crt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Unix()
	_, err = db.Exec(
		`INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		 VALUES (1, ?, ?, ?, 11, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		crt, nowMS, nowMS, string(conf), string(modelsJSON), string(decksJSON), string(dconfJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting col row: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting insert transaction: %w", err)
	}
	defer tx.Rollback()

	noteStmt, err := tx.Prepare(
		`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		 VALUES (?, ?, ?, ?, -1, '', ?, ?, ?, 0, '')`)
	if err != nil {
		return fmt.Errorf("preparing note insert: %w", err)
	}
	defer noteStmt.Close()
	cardStmt, err := tx.Prepare(
		`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due,
		                    ivl, factor, reps, lapses, left, odue, odid, flags, data)
		 VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`)
	if err != nil {
		return fmt.Errorf("preparing card insert: %w", err)
	}
	defer cardStmt.Close()

	noteID := nowMS
	cardID := nowMS
	for i, n := range deck.Notes() {
		noteID++
		flds := joinFields(n.Fields)
		sfld := ""
		if len(n.Fields) > 0 {
			sfld = n.Fields[0]
		}
		if _, err := noteStmt.Exec(noteID, n.GUID, n.Model.ID, now.Unix(), flds, sfld, fieldChecksum(sfld)); err != nil {
			return fmt.Errorf("inserting note %s: %w", n.GUID, err)
		}
		for ord := range n.Model.Templates {
			cardID++
			if _, err := cardStmt.Exec(cardID, noteID, deck.ID, ord, now.Unix(), i+1); err != nil {
				return fmt.Errorf("inserting card %d of note %s: %w", ord, n.GUID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing notes: %w", err)
	}
	return nil
}

func joinFields(fields []string) string {
	return strings.Join(fields, fieldSeparator)
}

// fieldChecksum matches Anki's sort-field checksum: the first 8 hex digits
// of the SHA1 of the field, as an integer.
func fieldChecksum(field string) int64 {
	sum := sha1.Sum([]byte(field))
	n, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return n
}

var fieldRefPattern = regexp.MustCompile(`\{\{#?([^{}#/^]+)\}\}`)

// templateRequirements reports, per template, which field ordinals the
// question side references. Anki uses this to decide which cards a note
// generates.
func templateRequirements(m *Model) []any {
	ordByName := make(map[string]int, len(m.Fields))
	for i, f := range m.Fields {
		ordByName[f.Name] = i
	}
	reqs := make([]any, 0, len(m.Templates))
	for i, t := range m.Templates {
		var ords []int
		seen := make(map[int]bool)
		for _, match := range fieldRefPattern.FindAllStringSubmatch(t.Qfmt, -1) {
			if ord, ok := ordByName[match[1]]; ok && !seen[ord] {
				seen[ord] = true
				ords = append(ords, ord)
			}
		}
		if ords == nil {
			ords = []int{0}
		}
		reqs = append(reqs, []any{i, "any", ords})
	}
	return reqs
}

func modelJSON(m *Model, now time.Time) map[string]any {
	flds := make([]map[string]any, 0, len(m.Fields))
	for i, f := range m.Fields {
		flds = append(flds, map[string]any{
			"name":   f.Name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Liberation Sans",
			"size":   20,
			"media":  []string{},
		})
	}
	tmpls := make([]map[string]any, 0, len(m.Templates))
	for i, t := range m.Templates {
		tmpls = append(tmpls, map[string]any{
			"name":  t.Name,
			"ord":   i,
			"qfmt":  t.Qfmt,
			"afmt":  t.Afmt,
			"did":   nil,
			"bqfmt": "",
			"bafmt": "",
		})
	}
	return map[string]any{
		"id":        m.ID,
		"name":      m.Name,
		"type":      0,
		"mod":       now.Unix(),
		"usn":       -1,
		"sortf":     0,
		"did":       1,
		"flds":      flds,
		"tmpls":     tmpls,
		"css":       m.CSS,
		"latexPre":  "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n",
		"latexPost": "\\end{document}",
		"req":       templateRequirements(m),
	}
}

func decksMap(deck *Deck, now time.Time) map[string]any {
	deckEntry := func(id int64, name string) map[string]any {
		return map[string]any{
			"id":               id,
			"name":             name,
			"desc":             "",
			"mod":              now.Unix(),
			"usn":              -1,
			"collapsed":        false,
			"browserCollapsed": false,
			"newToday":         []int{0, 0},
			"revToday":         []int{0, 0},
			"lrnToday":         []int{0, 0},
			"timeToday":        []int{0, 0},
			"dyn":              0,
			"extendNew":        0,
			"extendRev":        0,
			"conf":             1,
		}
	}
	return map[string]any{
		"1": deckEntry(1, "Default"),
		strconv.FormatInt(deck.ID, 10): deckEntry(deck.ID, deck.Name),
	}
}

func defaultDeckConf() map[string]any {
	return map[string]any{
		"1": map[string]any{
			"id":       1,
			"name":     "Default",
			"autoplay": true,
			"dyn":      0,
			"maxTaken": 60,
			"mod":      0,
			"replayq":  true,
			"timer":    0,
			"usn":      -1,
			"new": map[string]any{
				"bury":          true,
				"delays":        []int{1, 10},
				"initialFactor": 2500,
				"ints":          []int{1, 4, 7},
				"order":         1,
				"perDay":        20,
				"separate":      true,
			},
			"lapse": map[string]any{
				"delays":      []int{10},
				"leechAction": 0,
				"leechFails":  8,
				"minInt":      1,
				"mult":        0,
			},
			"rev": map[string]any{
				"bury":     true,
				"ease4":    1.3,
				"fuzz":     0.05,
				"ivlFct":   1,
				"maxIvl":   36500,
				"minSpace": 1,
				"perDay":   100,
			},
		},
	}
}
