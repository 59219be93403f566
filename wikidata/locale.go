package wikidata

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultLanguage is the unconditional end of every fallback chain.
const DefaultLanguage = "en"

// knownLanguages is the set of language codes decks are commonly built in.
// Used only for typo suggestions on the CLI, not for validation: any code is
// forwarded to Wikidata as-is and falls back if nothing comes back.
var knownLanguages = []string{
	"ar", "bn", "ca", "cs", "da", "de", "el", "en", "en-gb", "eo", "es",
	"fa", "fi", "fr", "he", "hi", "hu", "id", "it", "ja", "ko", "nb", "nl",
	"pl", "pt", "pt-br", "ro", "ru", "sv", "th", "tr", "uk", "vi", "zh",
	"zh-hans", "zh-hant",
}

// Label resolves the entity's display label in the requested language,
// walking the fallback chain: requested locale, its base language with any
// region suffix stripped, the default language, finally any label at all.
// Every fallback step logs a warning.
func (c *Client) Label(e *Entity, lang string) string {
	for _, l := range fallbackChain(lang) {
		if l == "" {
			break
		}
		if v, ok := e.Labels[l]; ok {
			return v
		}
		c.log.Warnw("no translation, falling back", "entity", e.ID, "language", l)
	}
	// Last resort: any label, in deterministic order.
	for _, l := range sortedKeys(e.Labels) {
		return e.Labels[l]
	}
	return e.ID
}

// Wikilink resolves the entity's Wikipedia URL in the requested language,
// with the same fallback chain as Label. Returns empty string for entities
// with no sitelinks at all.
func (c *Client) Wikilink(e *Entity, lang string) string {
	for _, l := range fallbackChain(lang) {
		if l == "" {
			break
		}
		site := strings.ReplaceAll(l, "-", "_") + "wiki"
		if sl, ok := e.Sitelinks[site]; ok {
			return sl.URL
		}
		c.log.Warnw("no wiki in language, falling back", "entity", e.ID, "language", l)
	}
	for _, site := range sortedKeys(e.Sitelinks) {
		return e.Sitelinks[site].URL
	}
	return ""
}

// fallbackChain lists the locales to try, most specific first. Iterative on
// purpose: a malformed locale cannot recurse, the chain is at most three
// entries long.
func fallbackChain(lang string) []string {
	chain := []string{lang}
	if base, _, found := strings.Cut(lang, "-"); found {
		chain = append(chain, base)
	}
	if lang != DefaultLanguage && !strings.HasPrefix(lang, DefaultLanguage+"-") {
		chain = append(chain, DefaultLanguage)
	}
	return chain
}

// SuggestLanguage returns the known language code closest to the given one
// by edit distance, when it is plausibly a typo (distance <= 2). Returns
// empty string otherwise.
func SuggestLanguage(code string) string {
	code = strings.ToLower(code)
	best, bestDist := "", 3
	for _, known := range knownLanguages {
		if known == code {
			return ""
		}
		if d := levenshtein.ComputeDistance(code, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}

// KnownLanguage reports whether the code is in the common-language list.
func KnownLanguage(code string) bool {
	code = strings.ToLower(code)
	for _, known := range knownLanguages {
		if known == code {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
