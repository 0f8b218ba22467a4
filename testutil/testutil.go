package testutil

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random 64-bit value.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Sizes returns n sizes drawn uniformly from [minSize, maxSize].
func (r *RNG) Sizes(n, minSize, maxSize int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, n)
	for i := range out {
		out[i] = minSize + r.rand.Intn(maxSize-minSize+1)
	}
	return out
}

// Payload returns a Raw value of n random bytes.
func (r *RNG) Payload(n int) Raw {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := make(Raw, n)
	_, _ = r.rand.Read(p)
	return p
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Raw is an opaque payload that RawCodec stores byte for byte.
type Raw []byte

// Fill returns a Raw of n copies of c.
func Fill(n int, c byte) Raw {
	return Raw(bytes.Repeat([]byte{c}, n))
}

// RawCodec encodes Raw values verbatim. Any other type is rejected.
type RawCodec struct{}

// Marshal returns a copy of the Raw value v.
func (RawCodec) Marshal(v any) ([]byte, error) {
	switch p := v.(type) {
	case Raw:
		return bytes.Clone(p), nil
	case *Raw:
		if p == nil {
			return nil, fmt.Errorf("testutil: nil *Raw")
		}
		return bytes.Clone(*p), nil
	default:
		return nil, fmt.Errorf("testutil: cannot encode %T", v)
	}
}

// Unmarshal copies data into v, which must be a *Raw or *any.
func (RawCodec) Unmarshal(data []byte, v any) error {
	switch p := v.(type) {
	case *Raw:
		*p = Raw(bytes.Clone(data))
	case *any:
		*p = Raw(bytes.Clone(data))
	default:
		return fmt.Errorf("testutil: cannot decode into %T", v)
	}
	return nil
}

// Name implements codec.Codec.
func (RawCodec) Name() string { return "raw" }
