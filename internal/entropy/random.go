// Package entropy supplies the uniform random sources the demographic systems
// draw from. Production worlds use an unseeded source; tests pass a seeded
// source or a fixed Sequence to pin outcomes.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source is the random collaborator consumed by every system.
type Source interface {
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
	// IntN returns a uniform int in [0, n). n must be > 0.
	IntN(n int) int
	// Bool returns true with probability one half.
	Bool() bool
	// Shuffle permutes n elements uniformly using swap.
	Shuffle(n int, swap func(i, j int))
}

type rngSource struct {
	rng *mrand.Rand
}

// NewSource returns a deterministic source for the given seed.
func NewSource(seed int64) Source {
	return &rngSource{rng: mrand.New(mrand.NewSource(seed))}
}

// NewSystemSource returns a source seeded from crypto/rand. Runs are not
// reproducible.
func NewSystemSource() Source {
	return NewSource(cryptoSeed())
}

func (s *rngSource) Float64() float64 { return s.rng.Float64() }
func (s *rngSource) IntN(n int) int   { return s.rng.Intn(n) }
func (s *rngSource) Bool() bool       { return s.rng.Int63()&1 == 1 }

func (s *rngSource) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// cryptoSeed reads 8 bytes from crypto/rand.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to the global generator.
		return mrand.Int63()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

// Sequence replays a fixed list of floats, cycling when exhausted. IntN maps
// the next float onto [0, n), Bool is true when the next float is below 0.5,
// and Shuffle leaves the order unchanged.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence returns a Sequence over values. An empty list always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func (s *Sequence) IntN(n int) int {
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

func (s *Sequence) Bool() bool { return s.Float64() < 0.5 }

func (s *Sequence) Shuffle(int, func(i, j int)) {}

// Draws returns how many values have been consumed so far.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
