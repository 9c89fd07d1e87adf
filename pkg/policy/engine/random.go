package engine

import (
	"hash/fnv"
	"math/rand/v2"
)

// RandomSource supplies the uniform draws in [0, 100) that decide whether
// a matching golden rule is enforced. Implementations are not required to
// be safe for concurrent use; give each decision its own source.
type RandomSource interface {
	Draw() float64
}

// SeededSource is a reproducible PCG stream.
type SeededSource struct {
	rng *rand.Rand
}

// NewSeededSource returns a source whose draws are fully determined by seed.
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Draw returns the next value in [0, 100).
func (s *SeededSource) Draw() float64 {
	return s.rng.Float64() * 100
}

// FixedSource always draws the same value.
type FixedSource float64

// Draw returns the fixed value.
func (f FixedSource) Draw() float64 {
	return float64(f)
}

// SequenceSource replays a recorded list of draws. Once exhausted it keeps
// returning 0 and Exhausted reports true.
type SequenceSource struct {
	draws     []float64
	pos       int
	exhausted bool
}

// NewSequenceSource returns a source replaying draws in order.
func NewSequenceSource(draws ...float64) *SequenceSource {
	return &SequenceSource{draws: append([]float64(nil), draws...)}
}

// Draw returns the next recorded value.
func (s *SequenceSource) Draw() float64 {
	if s.pos >= len(s.draws) {
		s.exhausted = true
		return 0
	}
	v := s.draws[s.pos]
	s.pos++
	return v
}

// Exhausted reports whether more draws were requested than recorded.
func (s *SequenceSource) Exhausted() bool {
	return s.exhausted
}

// Remaining returns the number of unused draws.
func (s *SequenceSource) Remaining() int {
	return len(s.draws) - s.pos
}

// RecordingSource passes draws through from another source and keeps them.
type RecordingSource struct {
	src   RandomSource
	draws []float64
}

// NewRecordingSource wraps src.
func NewRecordingSource(src RandomSource) *RecordingSource {
	return &RecordingSource{src: src}
}

// Draw returns and records the next draw of the wrapped source.
func (r *RecordingSource) Draw() float64 {
	v := r.src.Draw()
	r.draws = append(r.draws, v)
	return v
}

// Draws returns a copy of the recorded draws.
func (r *RecordingSource) Draws() []float64 {
	return append([]float64(nil), r.draws...)
}

// SeedFor derives an independent per-candidate seed from a batch seed so
// that every candidate in a batch gets its own reproducible stream.
func SeedFor(batchSeed uint64, candidateID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(candidateID))
	return h.Sum64() ^ (batchSeed * 0x9e3779b97f4a7c15)
}
