package run

import (
	"time"

	"hmmsynth/domain/core"
)

// CodeVersion is recorded in every manifest.
const CodeVersion = "hmmsynth/1"

// Manifest describes one export run. It is written next to the exported
// files so the run can be reproduced.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Fingerprint RunFingerprint `json:"fingerprint"`
	SeqLen      int            `json:"seq_len"`
	Models      []string       `json:"models"`
	Columns     []string       `json:"columns"`
	ClassCounts map[int]int    `json:"class_counts"`
	Files       []string       `json:"files"`
	CreatedAt   core.Timestamp `json:"created_at"`
	Duration    time.Duration  `json:"duration_ns"`
}

// NewManifest starts a manifest for a run over the given models.
func NewManifest(fp RunFingerprint, seqLen int, models []string) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Fingerprint: fp,
		SeqLen:      seqLen,
		Models:      append([]string(nil), models...),
		ClassCounts: make(map[int]int),
		CreatedAt:   core.Now(),
	}
}

// Records is the number of records the run wrote.
func (m *Manifest) Records() int {
	n := 0
	for _, c := range m.ClassCounts {
		n += c
	}
	return n
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewArgumentError("run_id", "cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewArgumentError("fingerprint", "cannot be empty")
	}
	if len(m.Models) == 0 {
		return core.NewArgumentError("models", "cannot be empty")
	}
	if m.SeqLen <= 1 {
		return core.NewArgumentError("seq_len", "must be greater than 1")
	}
	if got := m.Records(); got != m.Fingerprint.Count {
		return core.NewArgumentError("class_counts", "do not add up to the record count")
	}
	return nil
}
