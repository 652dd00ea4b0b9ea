// Package random provides the number sources used to generate quiz problems.
//
// Production sessions draw from a PCG generator seeded with crypto/rand.
// Tests and reproducible sessions replay a fixed sequence instead.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewSource returns a PCG-backed generator for the given seed.
// The same seed always produces the same sequence.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewAutoSource seeds a generator from crypto/rand, falling back to the
// wall clock when the system entropy source is unavailable.
func NewAutoSource() *rand.Rand {
	seed, err := NewSeed()
	if err != nil {
		seed = uint64(time.Now().UnixNano())
	}
	return NewSource(seed)
}

// Sequence replays a fixed list of values, cycling when exhausted.
type Sequence struct {
	mu     sync.Mutex
	values []int
	next   int
}

// Fixed returns a Sequence over values. An empty Sequence always yields 0.
func Fixed(values ...int) *Sequence {
	return &Sequence{values: append([]int(nil), values...)}
}

// IntN returns the next value reduced into [0, n).
func (s *Sequence) IntN(n int) int {
	if n <= 0 {
		panic("random: invalid argument to IntN")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++

	v %= n
	if v < 0 {
		v += n
	}
	return v
}
