package profiling

import (
	"context"
	"fmt"

	"hmmsynth/domain/core"
	"hmmsynth/domain/synth"
)

// StateOccupancy is the share of steps each state held across one model's
// sampled sequences, indexed by state position.
type StateOccupancy struct {
	Model    int       `json:"model"`
	Hidden   []float64 `json:"hidden"`
	Emitted  []float64 `json:"emitted"` // hidden state after label noise
	Observed []float64 `json:"observed"`
}

// Occupancy samples n sequences of the given length from every generator
// and reports how often each state was visited. The generators are advanced.
func (dp *DataProfiler) Occupancy(ctx context.Context, gens []*synth.Generator, length, n int) ([]StateOccupancy, error) {
	if n <= 0 {
		return nil, core.NewArgumentError("n", fmt.Sprintf("must be positive, got %d", n))
	}
	out := make([]StateOccupancy, len(gens))
	for k, g := range gens {
		occ := StateOccupancy{
			Model:    k,
			Hidden:   make([]float64, len(g.HiddenStates())),
			Emitted:  make([]float64, len(g.HiddenStates())),
			Observed: make([]float64, len(g.ObservedStates())),
		}
		steps := 0
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			_, tr, err := g.GenerateTrace(length)
			if err != nil {
				return nil, fmt.Errorf("model %d: %w", k, err)
			}
			for t := range tr.Observed {
				occ.Hidden[tr.TrueHidden[t]]++
				occ.Emitted[tr.EmittedHidden[t]]++
				occ.Observed[tr.Observed[t]]++
			}
			steps += len(tr.Observed)
		}
		for _, shares := range [][]float64{occ.Hidden, occ.Emitted, occ.Observed} {
			for i := range shares {
				shares[i] /= float64(steps)
			}
		}
		out[k] = occ
	}
	return out, nil
}
