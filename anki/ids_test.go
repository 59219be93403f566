package anki

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGUIDForDeterministic(t *testing.T) {
	a := GUIDFor("Q1234", "en")
	b := GUIDFor("Q1234", "en")
	c := GUIDFor("Q1234", "de")
	d := GUIDFor("Q5678", "en")

	assert.Equal(t, a, b, "same inputs, same guid")
	assert.NotEqual(t, a, c, "language is part of the identity")
	assert.NotEqual(t, a, d)
	assert.NotEmpty(t, a)
	for _, r := range a {
		assert.Contains(t, base91Table, string(r))
	}
}

func TestGUIDForJoinerMatters(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	assert.NotEqual(t, GUIDFor("ab", "c"), GUIDFor("a", "bc"))
}

func TestDeckIDRange(t *testing.T) {
	names := []string{
		"Administrative Subdivisions of France",
		"Administrative Subdivisions of 日本",
		"Largest Cities of New Zealand",
		"",
		strings.Repeat("x", 1000),
	}
	for _, name := range names {
		id := DeckID(name)
		assert.GreaterOrEqual(t, id, int64(1)<<30, "name %q", name)
		assert.Less(t, id, int64(1)<<31, "name %q", name)
		assert.Equal(t, id, DeckID(name), "deterministic for %q", name)
	}
}

func TestDeckIDDistinct(t *testing.T) {
	assert.NotEqual(t,
		DeckID("Administrative Subdivisions of France"),
		DeckID("Administrative Subdivisions of Germany"))
}
