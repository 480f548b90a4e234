package synth

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"hmmsynth/domain/core"
)

// State is one discrete mode of the process, observed or hidden. It owns a
// set of named features sampled together on every visit.
type State struct {
	Index    int
	Name     string
	features map[string]Feature
	names    []string
}

// NewState builds a state. Feature names are sampled in sorted order so a
// seeded source reproduces the same values.
func NewState(index int, name string, features map[string]Feature) (*State, error) {
	if index < 0 {
		return nil, core.NewConfigError("ind", fmt.Sprintf("state index must be non-negative, got %d", index))
	}
	s := &State{
		Index:    index,
		Name:     name,
		features: make(map[string]Feature, len(features)),
		names:    make([]string, 0, len(features)),
	}
	for k, f := range features {
		if k == "" {
			return nil, core.NewConfigError("features", "empty feature name")
		}
		s.features[k] = f
		s.names = append(s.names, k)
	}
	sort.Strings(s.names)
	return s, nil
}

// Names returns the sorted feature names.
func (s *State) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *State) Feature(name string) (Feature, bool) {
	f, ok := s.features[name]
	return f, ok
}

// Unwrap samples every feature once into a fresh map.
func (s *State) Unwrap(src rand.Source) map[string]Value {
	out := make(map[string]Value, len(s.names))
	for _, k := range s.names {
		out[k] = s.features[k].Sample(src)
	}
	return out
}

func (s *State) String() string {
	if s.Name != "" {
		return fmt.Sprintf("%d(%s)", s.Index, s.Name)
	}
	return fmt.Sprintf("%d", s.Index)
}

// CheckIndices verifies that the state indices are exactly {0, ..., len-1}.
func CheckIndices(states []*State) error {
	seen := make([]bool, len(states))
	for _, s := range states {
		if s == nil {
			return core.NewModelError("nil state")
		}
		if s.Index < 0 || s.Index >= len(states) {
			return core.NewModelError(fmt.Sprintf("state index %d out of range [0, %d)", s.Index, len(states)))
		}
		if seen[s.Index] {
			return core.NewModelError(fmt.Sprintf("duplicate state index %d", s.Index))
		}
		seen[s.Index] = true
	}
	return nil
}

// byIndex returns a copy of states ordered by Index. It assumes CheckIndices
// has passed.
func byIndex(states []*State) []*State {
	out := make([]*State, len(states))
	for _, s := range states {
		out[s.Index] = s
	}
	return out
}
