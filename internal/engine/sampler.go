package engine

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// sampler draws every value of a run from one explicit source.
type sampler struct {
	src rand.Source
	rnd *rand.Rand
}

func newSampler(src rand.Source) *sampler {
	return &sampler{src: src, rnd: rand.New(src)}
}

// intn returns a uniform integer in [0, n).
func (s *sampler) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rnd.Intn(n)
}

func (s *sampler) uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: s.src}.Rand()
}

func (s *sampler) lognormal(p LogNormal) float64 {
	return distuv.LogNormal{Mu: p.Mu, Sigma: p.Sigma, Src: s.src}.Rand()
}

// folded strips the sign of a log-normal draw instead of redrawing it.
func (s *sampler) folded(p LogNormal) float64 {
	return math.Abs(s.lognormal(p))
}

func (s *sampler) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: s.src}.Rand())
}

// picker draws from a Weighted set.
type picker struct {
	s      *sampler
	values []string
	cat    *distuv.Categorical
}

func (s *sampler) picker(w Weighted) *picker {
	p := &picker{s: s, values: w.Values}
	if len(w.Weights) > 0 {
		cat := distuv.NewCategorical(w.Weights, s.src)
		p.cat = &cat
	}
	return p
}

func (p *picker) pick() string {
	if p.cat == nil {
		return p.values[p.s.intn(len(p.values))]
	}
	return p.values[int(p.cat.Rand())]
}

// uniformPicker draws uniformly from a plain list.
func (s *sampler) uniformPicker(values []string) *picker {
	return &picker{s: s, values: values}
}
