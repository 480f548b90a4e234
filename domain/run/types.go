package run

import (
	"crypto/sha256"
	"fmt"

	"hmmsynth/domain/core"
)

// RunFingerprint captures everything that determines an export's content.
// Two runs with equal fingerprints write identical records.
type RunFingerprint struct {
	SpecHash    core.SpecHash `json:"spec_hash"`
	Seed        uint64        `json:"seed"`
	Workers     int           `json:"workers"`
	BatchSize   int           `json:"batch_size"`
	Count       int           `json:"count"`
	CodeVersion string        `json:"code_version"`
	Fingerprint core.Hash     `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(specHash core.SpecHash, seed uint64, workers, batchSize, count int, codeVersion string) RunFingerprint {
	return RunFingerprint{
		SpecHash:    specHash,
		Seed:        seed,
		Workers:     workers,
		BatchSize:   batchSize,
		Count:       count,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(specHash, seed, workers, batchSize, count, codeVersion),
	}
}

func computeRunFingerprint(specHash core.SpecHash, seed uint64, workers, batchSize, count int, codeVersion string) core.Hash {
	data := fmt.Sprintf("spec:%s|seed:%d|workers:%d|batch:%d|count:%d|code:%s",
		specHash, seed, workers, batchSize, count, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
