// Package codec centralizes object encoding for the allocator.
//
// The allocator stores whatever bytes a codec produces and hands them back
// verbatim on fetch. Objects written with one codec must be read with the same
// codec; arenas are never persisted, so switching codecs only affects newly
// stored objects of a fresh allocator.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Compressed variants are addressed as "<codec>+<algorithm>", for example
// "go-json+zstd".
func ByName(name string) (Codec, bool) {
	base, algo, compressed := strings.Cut(name, "+")

	var c Codec
	switch base {
	case "json":
		c = JSON{}
	case "go-json":
		c = GoJSON{}
	default:
		return nil, false
	}
	if !compressed {
		return c, true
	}

	a, ok := ParseAlgorithm(algo)
	if !ok {
		return nil, false
	}
	return NewCompressed(c, a), true
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
