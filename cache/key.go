package cache

import (
	"encoding/binary"
	"slices"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

const keySize = 32

// SearchKey identifies one cacheable search.
type SearchKey struct {
	Query      string
	TextLimit  int
	ImageLimit int
	Sources    []string
	TextOnly   bool
}

// NormalizeQuery trims q and collapses runs of whitespace. Case is kept:
// embeddings are case-sensitive, so the key must be too.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Hash returns the BLAKE2b-256 digest of the normalized key. Source order
// does not affect the digest.
func (k SearchKey) Hash() []byte {
	h, _ := blake2b.New(keySize, nil)

	writeString := func(s string) {
		var n [binary.MaxVarintLen64]byte
		h.Write(n[:binary.PutUvarint(n[:], uint64(len(s)))])
		h.Write([]byte(s))
	}
	writeInt := func(v int) {
		var n [binary.MaxVarintLen64]byte
		h.Write(n[:binary.PutVarint(n[:], int64(v))])
	}

	writeString(NormalizeQuery(k.Query))
	writeInt(k.TextLimit)
	writeInt(k.ImageLimit)
	if k.TextOnly {
		writeInt(1)
	} else {
		writeInt(0)
	}
	sources := slices.Clone(k.Sources)
	slices.Sort(sources)
	sources = slices.Compact(sources)
	writeInt(len(sources))
	for _, s := range sources {
		writeString(s)
	}
	return h.Sum(nil)
}
