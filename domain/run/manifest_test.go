package run

import (
	"testing"

	"hmmsynth/domain/core"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	spec := core.NewSpecHash([]byte("seq_len: 10"))

	fp1 := NewRunFingerprint(spec, 42, 4, 64, 1000, CodeVersion)
	fp2 := NewRunFingerprint(spec, 42, 4, 64, 1000, CodeVersion)

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.SpecHash != spec {
		t.Errorf("SpecHash mismatch: %s vs %s", fp1.SpecHash, spec)
	}
	if fp1.Seed != 42 {
		t.Errorf("Seed mismatch: %d", fp1.Seed)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	spec := core.NewSpecHash([]byte("seq_len: 10"))
	base := NewRunFingerprint(spec, 42, 4, 64, 1000, CodeVersion)

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"different spec", NewRunFingerprint(core.NewSpecHash([]byte("seq_len: 11")), 42, 4, 64, 1000, CodeVersion)},
		{"different seed", NewRunFingerprint(spec, 43, 4, 64, 1000, CodeVersion)},
		{"different workers", NewRunFingerprint(spec, 42, 2, 64, 1000, CodeVersion)},
		{"different batch", NewRunFingerprint(spec, 42, 4, 32, 1000, CodeVersion)},
		{"different count", NewRunFingerprint(spec, 42, 4, 64, 999, CodeVersion)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestManifest_Validate(t *testing.T) {
	fp := NewRunFingerprint(core.NewSpecHash([]byte("x")), 1, 1, 10, 3, CodeVersion)
	m := NewManifest(fp, 20, []string{"a", "b"})

	if m.RunID == "" {
		t.Fatal("RunID not set")
	}
	if err := m.Validate(); err == nil {
		t.Error("Expected validation to fail before records are counted")
	}

	m.ClassCounts[0] = 2
	m.ClassCounts[1] = 1
	if m.Records() != 3 {
		t.Errorf("Expected 3 records, got %d", m.Records())
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Manifest validation failed: %v", err)
	}

	m.SeqLen = 1
	if err := m.Validate(); !core.IsArgumentError(err) {
		t.Errorf("Expected argument error, got %v", err)
	}
}
