package simulator

import "math/rand/v2"

// source wraps the generator's single random stream.
type source struct {
	r *rand.Rand
}

func newSource(seed uint64) *source {
	return &source{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *source) float() float64 { return s.r.Float64() }

func (s *source) chance(p float64) bool { return s.r.Float64() < p }

func (s *source) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.r.Float64()
}

func (s *source) normal(mean, stddev float64) float64 {
	return mean + stddev*s.r.NormFloat64()
}

func (s *source) intn(n int) int { return s.r.IntN(n) }

func pick[T any](s *source, items []T) T {
	return items[s.intn(len(items))]
}
