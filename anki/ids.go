package anki

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"strings"
)

// base91Table is Anki's alphabet for note GUIDs.
const base91Table = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!#$%&()*+,-./:;<=>?@[]^_`{|}~"

// GUIDFor derives a stable note GUID from the given key values: the values
// are joined, hashed, and the first 8 hash bytes are encoded in Anki's
// base-91 alphabet. Equal inputs always produce equal GUIDs, so re-importing
// a rebuilt deck updates notes instead of duplicating them.
func GUIDFor(values ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(values, "__")))
	n := binary.BigEndian.Uint64(sum[:8])

	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base91Table[n%91]
		n /= 91
	}
	return string(buf[i:])
}

// deckIDBase was generated once at random from [1<<30, 1<<31) and is part of
// the persistent data format; changing it would re-id every published deck.
const deckIDBase = 1290639408

// DeckID maps a deck name deterministically into Anki's range for user deck
// ids, [1<<30, 1<<31). The name's hash digest is read as little-endian
// 32-bit words and summed with wraparound before folding into the range.
func DeckID(name string) int64 {
	sum := sha512.Sum512([]byte(name))
	var acc int32
	for i := 0; i < len(sum); i += 4 {
		acc += int32(binary.LittleEndian.Uint32(sum[i : i+4]))
	}
	offset := (deckIDBase + int64(acc)) % (1 << 30)
	if offset < 0 {
		offset += 1 << 30
	}
	return 1<<30 + offset
}
