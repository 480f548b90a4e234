package testkit

import (
	"fmt"
	"sort"

	"hmmsynth/domain/modeldef"
	"hmmsynth/domain/synth"
)

// Preset names accepted by Preset.
const (
	PresetDemo     = "demo"
	PresetShopping = "shopping"
)

// Presets lists the available preset names.
func Presets() []string {
	names := []string{PresetDemo, PresetShopping}
	sort.Strings(names)
	return names
}

// Preset returns a ready-made collection spec by name.
func Preset(name string) (modeldef.CollectionSpec, error) {
	switch name {
	case PresetDemo:
		return DemoSpec(), nil
	case PresetShopping:
		return ShoppingSpec(), nil
	default:
		return modeldef.CollectionSpec{}, fmt.Errorf("unknown preset %q (available: %v)", name, Presets())
	}
}

func f64(v float64) *float64 { return &v }

// DemoSpec is a two-class dataset: both classes share states and features
// and differ only in how sticky the hidden chain is.
func DemoSpec() modeldef.CollectionSpec {
	model := func(name string, stay float64) modeldef.ModelSpec {
		return modeldef.ModelSpec{
			Name:  name,
			Noise: 0.1,
			ObservedStates: []modeldef.StateSpec{
				{Ind: 0, Name: "low", Features: map[string]modeldef.FeatureSpec{
					"value": {Type: "float", Min: f64(0), Max: f64(1), DistType: "beta", DistArgs: synth.DistArgs{A: 2, B: 5}},
					"code":  {Type: "category", N: 3, DistType: "const", DistArgs: synth.DistArgs{P: []float64{0.7, 0.2, 0.1}}},
				}},
				{Ind: 1, Name: "high", Features: map[string]modeldef.FeatureSpec{
					"value": {Type: "float", Min: f64(0), Max: f64(1), DistType: "beta", DistArgs: synth.DistArgs{A: 5, B: 2}},
					"code":  {Type: "category", N: 3, DistType: "const", DistArgs: synth.DistArgs{P: []float64{0.1, 0.2, 0.7}}},
				}},
			},
			HiddenStates: []modeldef.StateSpec{
				{Ind: 0, Name: "quiet", Features: map[string]modeldef.FeatureSpec{
					"regime": {Type: "category", N: 2, DistType: "const", DistArgs: synth.DistArgs{P: []float64{1, 0}}},
				}},
				{Ind: 1, Name: "active", Features: map[string]modeldef.FeatureSpec{
					"regime": {Type: "category", N: 2, DistType: "const", DistArgs: synth.DistArgs{P: []float64{0, 1}}},
				}},
			},
			// [from][to][hidden]
			StateTransitionTensor: [][][]float64{
				{{0.9, 0.3}, {0.1, 0.7}},
				{{0.6, 0.2}, {0.4, 0.8}},
			},
			HiddenTransitionMatrix: [][]float64{
				{stay, 1 - stay},
				{1 - stay, stay},
			},
		}
	}
	return modeldef.CollectionSpec{
		SeqLen:      64,
		DatasetSize: 1000,
		Seed:        42,
		Models:      []modeldef.ModelSpec{model("sticky", 0.95), model("jumpy", 0.5)},
	}
}

// ShoppingSpec models customer event streams. Observed states are journey
// steps, hidden states are engagement levels; the two classes are loyal and
// churning customers.
func ShoppingSpec() modeldef.CollectionSpec {
	steps := func() []modeldef.StateSpec {
		step := func(ind int, name string, lo, hi float64, channel []float64) modeldef.StateSpec {
			return modeldef.StateSpec{Ind: ind, Name: name, Features: map[string]modeldef.FeatureSpec{
				"amount":  {Type: "float", Min: f64(lo), Max: f64(hi), Log: true, DistType: "beta", DistArgs: synth.DistArgs{A: 2, B: 3}},
				"channel": {Type: "category", N: 3, DistType: "const", DistArgs: synth.DistArgs{P: channel}},
				"mcc":     {Type: "category", N: 20, DistType: "uniform"},
			}}
		}
		return []modeldef.StateSpec{
			step(0, "browse", 0, 0.5, []float64{0.6, 0.3, 0.1}),
			step(1, "cart", 1, 3, []float64{0.5, 0.4, 0.1}),
			step(2, "purchase", 2, 5, []float64{0.4, 0.4, 0.2}),
			step(3, "return", 1, 4, []float64{0.2, 0.2, 0.6}),
		}
	}
	engagement := []modeldef.StateSpec{
		{Ind: 0, Name: "engaged", Features: map[string]modeldef.FeatureSpec{
			"session_minutes": {Type: "float", Min: f64(5), Max: f64(60), DistType: "uniform"},
		}},
		{Ind: 1, Name: "lapsing", Features: map[string]modeldef.FeatureSpec{
			"session_minutes": {Type: "float", Min: f64(0), Max: f64(10), DistType: "uniform"},
		}},
	}
	// [from][to][hidden]; lapsing customers return more and purchase less.
	tensor := [][][]float64{
		{{0.5, 0.7}, {0.3, 0.2}, {0.2, 0.05}, {0.0, 0.05}},
		{{0.2, 0.5}, {0.2, 0.2}, {0.6, 0.2}, {0.0, 0.1}},
		{{0.6, 0.4}, {0.2, 0.1}, {0.15, 0.1}, {0.05, 0.4}},
		{{0.7, 0.6}, {0.1, 0.1}, {0.2, 0.1}, {0.0, 0.2}},
	}
	model := func(name string, lapse, recover float64) modeldef.ModelSpec {
		return modeldef.ModelSpec{
			Name:                  name,
			Noise:                 0.05,
			ObservedStates:        steps(),
			HiddenStates:          engagement,
			StateTransitionTensor: tensor,
			HiddenTransitionMatrix: [][]float64{
				{1 - lapse, lapse},
				{recover, 1 - recover},
			},
		}
	}
	return modeldef.CollectionSpec{
		SeqLen:      100,
		DatasetSize: 5000,
		Seed:        7,
		Models:      []modeldef.ModelSpec{model("loyal", 0.05, 0.3), model("churning", 0.3, 0.05)},
		Filters:     []modeldef.FilterSpec{{Type: "cast_float", Columns: []string{"channel"}}},
	}
}
