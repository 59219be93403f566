package wikidata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFallbackChain(t *testing.T) {
	tests := []struct {
		lang string
		want []string
	}{
		{"pt-br", []string{"pt-br", "pt", "en"}},
		{"fr", []string{"fr", "en"}},
		{"en", []string{"en"}},
		{"en-gb", []string{"en-gb", "en"}},
		{"zh-hant", []string{"zh-hant", "zh", "en"}},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, fallbackChain(tt.lang)); diff != "" {
				t.Errorf("fallbackChain(%q) mismatch (-want +got):\n%s", tt.lang, diff)
			}
		})
	}
}

func TestLabelFallback(t *testing.T) {
	e := &Entity{
		ID:     "Q90",
		Labels: map[string]string{"en": "Paris", "fr": "Paris"},
	}
	c := NewClient()

	// No pt-br translation, no pt translation: falls through to en without
	// raising.
	assert.Equal(t, "Paris", c.Label(e, "pt-br"))
	assert.Equal(t, "Paris", c.Label(e, "fr"))
}

func TestLabelLastResort(t *testing.T) {
	e := &Entity{ID: "Q90", Labels: map[string]string{"ja": "パリ"}}
	c := NewClient()
	assert.Equal(t, "パリ", c.Label(e, "de"), "any available label beats the raw id")

	empty := &Entity{ID: "Q90", Labels: map[string]string{}}
	assert.Equal(t, "Q90", c.Label(empty, "de"), "id when nothing else exists")
}

func TestWikilinkFallback(t *testing.T) {
	e := &Entity{
		ID: "Q90",
		Sitelinks: map[string]Sitelink{
			"enwiki": {Site: "enwiki", Title: "Paris", URL: "https://en.wikipedia.org/wiki/Paris"},
			"ptwiki": {Site: "ptwiki", Title: "Paris", URL: "https://pt.wikipedia.org/wiki/Paris"},
		},
	}
	c := NewClient()

	assert.Equal(t, "https://pt.wikipedia.org/wiki/Paris", c.Wikilink(e, "pt-br"),
		"region suffix stripped before default kicks in")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Paris", c.Wikilink(e, "de"))
	assert.Equal(t, "", c.Wikilink(&Entity{ID: "Q1"}, "en"))
}

func TestSuggestLanguage(t *testing.T) {
	assert.Equal(t, "de", SuggestLanguage("de1"))
	assert.Equal(t, "pt-br", SuggestLanguage("pt-br2"))
	assert.Equal(t, "", SuggestLanguage("fr"), "exact match needs no suggestion")
	assert.Equal(t, "", SuggestLanguage("klingon"), "too far from anything known")
}

func TestKnownLanguage(t *testing.T) {
	assert.True(t, KnownLanguage("en"))
	assert.True(t, KnownLanguage("ZH-HANS"))
	assert.False(t, KnownLanguage("xx"))
}
