package config

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Size is a byte count that reads "64MiB", "1.5 GB" or a plain integer.
type Size uint64

// ParseSize parses a human-readable byte count.
func ParseSize(s string) (Size, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid size %q: %w", s, err)
	}
	return Size(n), nil
}

// String renders the size with IEC units.
func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// Int returns the size as an int, failing if it does not fit.
func (s Size) Int() (int, error) {
	if uint64(s) > math.MaxInt {
		return 0, fmt.Errorf("config: size %s overflows int", s)
	}
	return int(s), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: line %d: size must be a scalar", value.Line)
	}

	var n uint64
	if err := value.Decode(&n); err == nil {
		*s = Size(n)
		return nil
	}

	parsed, err := ParseSize(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (any, error) {
	return s.String(), nil
}
