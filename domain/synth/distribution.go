package synth

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"hmmsynth/domain/core"
)

// probabilityTolerance bounds how far a weight vector may sum away from 1.
const probabilityTolerance = 1e-6

// DistKind selects the scalar random source behind a Feature.
type DistKind int

const (
	DistUniform DistKind = iota // continuous uniform on [0,1)
	DistBeta                    // Beta(a, b) on [0,1]
	DistConst                   // fixed discrete weights over n buckets
)

func (k DistKind) String() string {
	switch k {
	case DistUniform:
		return "uniform"
	case DistBeta:
		return "beta"
	case DistConst:
		return "const"
	default:
		return fmt.Sprintf("DistKind(%d)", int(k))
	}
}

// ParseDistKind maps a dist_type string to its kind. An empty string selects
// the uniform distribution.
func ParseDistKind(s string) (DistKind, error) {
	switch s {
	case "", "uniform":
		return DistUniform, nil
	case "beta":
		return DistBeta, nil
	case "const":
		return DistConst, nil
	default:
		return 0, core.NewConfigError("dist_type", fmt.Sprintf("unsupported distribution %q", s))
	}
}

// DistArgs carries the kind-specific parameters (dist_args).
type DistArgs struct {
	A float64   `json:"a,omitempty" yaml:"a,omitempty"`
	B float64   `json:"b,omitempty" yaml:"b,omitempty"`
	P []float64 `json:"p,omitempty" yaml:"p,omitempty"`
}

// Distribution is a sampleable scalar random source. The zero value is the
// uniform distribution.
type Distribution struct {
	kind  DistKind
	alpha float64
	beta  float64
	n     int
	pick  categorical
}

// NewUniform returns the continuous uniform distribution on [0,1).
func NewUniform() Distribution {
	return Distribution{kind: DistUniform}
}

// NewBeta returns Beta(a, b). Both shape parameters must be positive.
func NewBeta(a, b float64) (Distribution, error) {
	if !(a > 0) || !(b > 0) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return Distribution{}, core.NewConfigError("dist_args", fmt.Sprintf("beta parameters must be positive, got a=%v b=%v", a, b))
	}
	return Distribution{kind: DistBeta, alpha: a, beta: b}, nil
}

// NewDiscrete returns a distribution that picks bucket i with probability
// p[i] and reports it as i/n.
func NewDiscrete(n int, p []float64) (Distribution, error) {
	if n <= 0 {
		return Distribution{}, core.NewConfigError("n", fmt.Sprintf("must be positive, got %d", n))
	}
	if len(p) != n {
		return Distribution{}, core.NewConfigError("dist_args.p", fmt.Sprintf("expected %d weights, got %d", n, len(p)))
	}
	if err := checkProbabilityVector(p); err != nil {
		return Distribution{}, core.NewConfigError("dist_args.p", err.Error())
	}
	return Distribution{kind: DistConst, n: n, pick: newCategorical(p)}, nil
}

// NewDistribution is the factory keyed by kind. n is only used by DistConst.
func NewDistribution(kind DistKind, n int, args DistArgs) (Distribution, error) {
	switch kind {
	case DistUniform:
		return NewUniform(), nil
	case DistBeta:
		return NewBeta(args.A, args.B)
	case DistConst:
		return NewDiscrete(n, args.P)
	default:
		return Distribution{}, core.NewConfigError("dist_type", fmt.Sprintf("unsupported distribution %s", kind))
	}
}

// Kind returns the distribution kind.
func (d Distribution) Kind() DistKind {
	return d.kind
}

// Sample draws one value from src. A nil src falls back to the global source.
func (d Distribution) Sample(src rand.Source) float64 {
	switch d.kind {
	case DistUniform:
		return distuv.Uniform{Min: 0, Max: 1, Src: src}.Rand()
	case DistBeta:
		return distuv.Beta{Alpha: d.alpha, Beta: d.beta, Src: src}.Rand()
	case DistConst:
		return float64(d.pick.draw(src)) / float64(d.n)
	default:
		panic(fmt.Sprintf("synth: unknown distribution kind %d", int(d.kind)))
	}
}

// uniform01 draws from [0,1) using the same conversion as distuv.Uniform.
func uniform01(src rand.Source) float64 {
	if src == nil {
		return rand.Float64()
	}
	return rand.New(src).Float64()
}

// uniformIndex picks an index in [0,n) uniformly.
func uniformIndex(n int, src rand.Source) int {
	i := int(uniform01(src) * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// checkProbabilityVector verifies p is non-negative, finite, and sums to 1.
func checkProbabilityVector(p []float64) error {
	if len(p) == 0 {
		return fmt.Errorf("empty probability vector")
	}
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %d is not finite", i)
		}
		if v < 0 {
			return fmt.Errorf("weight %d is negative (%v)", i, v)
		}
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("weights sum to %v, want 1", sum)
	}
	return nil
}
