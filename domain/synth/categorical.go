package synth

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// categorical is a validated weight vector sampled through
// distuv.Categorical. Zero-weight buckets are left out of the weight heap so
// they are never drawn, even on a uniform draw of exactly 0.
type categorical struct {
	weights []float64
	buckets []int // original bucket of each kept weight
}

func newCategorical(p []float64) categorical {
	c := categorical{}
	for i, w := range p {
		if w > 0 {
			c.weights = append(c.weights, w)
			c.buckets = append(c.buckets, i)
		}
	}
	return c
}

// bind returns a sampler drawing from src. Every draw consumes exactly one
// uniform from src.
func (c categorical) bind(src rand.Source) boundCategorical {
	return boundCategorical{dist: distuv.NewCategorical(c.weights, src), buckets: c.buckets}
}

// draw samples one bucket from src.
func (c categorical) draw(src rand.Source) int {
	return c.bind(src).draw()
}

type boundCategorical struct {
	dist    distuv.Categorical
	buckets []int
}

func (b boundCategorical) draw() int {
	return b.buckets[int(b.dist.Rand())]
}
