package modeldef

import "hmmsynth/domain/synth"

// FeatureSpec declares one feature of a state.
//
// Recognized options: type (category|float), n, min, max, log,
// dist_type (uniform|beta|const) and dist_args ({a, b} for beta, {p} for const).
type FeatureSpec struct {
	Type     string         `json:"type" yaml:"type"`
	N        int            `json:"n,omitempty" yaml:"n,omitempty"`
	Min      *float64       `json:"min,omitempty" yaml:"min,omitempty"` // default 0
	Max      *float64       `json:"max,omitempty" yaml:"max,omitempty"` // default 1
	Log      bool           `json:"log,omitempty" yaml:"log,omitempty"`
	DistType string         `json:"dist_type,omitempty" yaml:"dist_type,omitempty"`
	DistArgs synth.DistArgs `json:"dist_args,omitempty" yaml:"dist_args,omitempty"`
}

// StateSpec declares one observed or hidden state.
type StateSpec struct {
	Ind      int                    `json:"ind" yaml:"ind"`
	Name     string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Features map[string]FeatureSpec `json:"features" yaml:"features"`
}

// ModelSpec declares one generator. The transition arrays are kept as
// decoded nested lists so their rank can be checked when the model is built.
type ModelSpec struct {
	Name                   string      `json:"name,omitempty" yaml:"name,omitempty"`
	ObservedStates         []StateSpec `json:"observed_states" yaml:"observed_states"`
	HiddenStates           []StateSpec `json:"hidden_states" yaml:"hidden_states"`
	StateTransitionTensor  any         `json:"state_transition_tensor" yaml:"state_transition_tensor"`
	HiddenTransitionMatrix any         `json:"hidden_transition_matrix" yaml:"hidden_transition_matrix"`
	Noise                  float64     `json:"noise,omitempty" yaml:"noise,omitempty"`
}

// FilterSpec declares one post-processing step.
//
//	drop_columns   columns
//	select_columns columns
//	truncate_tail  n
//	cast_float     columns (empty means every category column)
type FilterSpec struct {
	Type    string   `json:"type" yaml:"type"`
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	N       int      `json:"n,omitempty" yaml:"n,omitempty"`
}

// CollectionSpec declares a whole synthetic dataset.
type CollectionSpec struct {
	SeqLen      int          `json:"seq_len" yaml:"seq_len"`
	DatasetSize int          `json:"dataset_size" yaml:"dataset_size"`
	Seed        uint64       `json:"seed,omitempty" yaml:"seed,omitempty"`
	Models      []ModelSpec  `json:"models" yaml:"models"`
	Filters     []FilterSpec `json:"i_filters,omitempty" yaml:"i_filters,omitempty"`
}
