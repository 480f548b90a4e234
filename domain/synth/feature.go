package synth

import (
	"fmt"
	"math"
	"math/rand/v2"

	"hmmsynth/domain/core"
)

// FeatureKind distinguishes category features from float features.
type FeatureKind int

const (
	FeatureCategory FeatureKind = iota
	FeatureFloat
)

func (k FeatureKind) String() string {
	switch k {
	case FeatureCategory:
		return "category"
	case FeatureFloat:
		return "float"
	default:
		return fmt.Sprintf("FeatureKind(%d)", int(k))
	}
}

// ParseFeatureKind maps a feature type string to its kind.
func ParseFeatureKind(s string) (FeatureKind, error) {
	switch s {
	case "category":
		return FeatureCategory, nil
	case "float":
		return FeatureFloat, nil
	default:
		return 0, core.NewConfigError("type", fmt.Sprintf("unsupported feature type %q", s))
	}
}

// Feature maps a Distribution draw into a domain value.
//
// A category feature emits floor(sample*n) in [0, n). A float feature emits
// min + sample*(max-min), exponentiated when log is set. The exponentiated
// value is not clamped, so large bounds can overflow to +Inf.
type Feature struct {
	kind FeatureKind
	n    int
	min  float64
	max  float64
	log  bool
	dist Distribution
}

// NewCategoryFeature builds a category feature over [0, n).
func NewCategoryFeature(n int, kind DistKind, args DistArgs) (Feature, error) {
	if n <= 0 {
		return Feature{}, core.NewConfigError("n", fmt.Sprintf("category size must be positive, got %d", n))
	}
	dist, err := NewDistribution(kind, n, args)
	if err != nil {
		return Feature{}, err
	}
	return Feature{kind: FeatureCategory, n: n, dist: dist}, nil
}

// NewFloatFeature builds a float feature over [min, max]. Only the uniform
// and beta distributions are accepted.
func NewFloatFeature(min, max float64, log bool, kind DistKind, args DistArgs) (Feature, error) {
	if kind != DistUniform && kind != DistBeta {
		return Feature{}, core.NewConfigError("dist_type", fmt.Sprintf("float features support uniform or beta, got %s", kind))
	}
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return Feature{}, core.NewConfigError("min/max", fmt.Sprintf("invalid bounds [%v, %v]", min, max))
	}
	dist, err := NewDistribution(kind, 0, args)
	if err != nil {
		return Feature{}, err
	}
	return Feature{kind: FeatureFloat, min: min, max: max, log: log, dist: dist}, nil
}

func (f Feature) Kind() FeatureKind {
	return f.kind
}

// ValueKind is the dtype of the values this feature emits.
func (f Feature) ValueKind() ValueKind {
	if f.kind == FeatureCategory {
		return KindInt
	}
	return KindFloat
}

// N is the category domain size; zero for float features.
func (f Feature) N() int {
	return f.n
}

// Bounds returns the linear bounds and log flag of a float feature.
func (f Feature) Bounds() (min, max float64, log bool) {
	return f.min, f.max, f.log
}

func (f Feature) Distribution() Distribution {
	return f.dist
}

// Sample draws one value.
func (f Feature) Sample(src rand.Source) Value {
	switch f.kind {
	case FeatureCategory:
		v := int(f.dist.Sample(src) * float64(f.n))
		// Beta can return exactly 1.
		if v >= f.n {
			v = f.n - 1
		}
		if v < 0 {
			v = 0
		}
		return IntValue(int64(v))
	case FeatureFloat:
		v := f.min + f.dist.Sample(src)*(f.max-f.min)
		if f.log {
			v = math.Exp(v)
		}
		return FloatValue(v)
	default:
		panic(fmt.Sprintf("synth: unknown feature kind %d", int(f.kind)))
	}
}
