package engine

import "math/rand/v2"

// Rand is the uniform random source the engine draws from. Every draw is
// a float in [0, 1), so a recorded draw sequence replays a map exactly.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded PCG source
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SequenceRand replays a fixed list of draws, cycling when exhausted
type SequenceRand struct {
	values []float64
	next   int
}

// NewSequenceRand creates a replaying source; it panics on an empty list
func NewSequenceRand(values ...float64) *SequenceRand {
	if len(values) == 0 {
		panic("engine: NewSequenceRand needs at least one value")
	}
	return &SequenceRand{values: values}
}

// Float64 returns the next recorded draw
func (s *SequenceRand) Float64() float64 {
	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return v
}

// RecordingRand wraps a source and keeps every draw it hands out
type RecordingRand struct {
	src   Rand
	draws []float64
}

// NewRecordingRand wraps src
func NewRecordingRand(src Rand) *RecordingRand {
	return &RecordingRand{src: src}
}

// Float64 draws from the wrapped source and records the value
func (r *RecordingRand) Float64() float64 {
	v := r.src.Float64()
	r.draws = append(r.draws, v)
	return v
}

// Draws returns the values handed out so far
func (r *RecordingRand) Draws() []float64 {
	return append([]float64(nil), r.draws...)
}

func intn(r Rand, n int) int {
	if n <= 0 {
		return 0
	}
	v := int(r.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}
