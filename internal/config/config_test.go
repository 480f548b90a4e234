package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmmsynth/internal"
	"hmmsynth/internal/errors"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./out", cfg.Export.OutputDir)
	assert.Positive(t, cfg.Export.Workers)
	assert.Zero(t, cfg.Model.SeqLen)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Empty(t, cfg.Remote.URL)
	assert.Equal(t, internal.LogLevelInfo, cfg.Logger().GetLevel())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HMMSYNTH_MODEL_FILE": "models/churn.yaml",
		"SEQ_LEN":             "120",
		"DATASET_SIZE":        "300",
		"SEED":                "18446744073709551615",
		"WORKERS":             "3",
		"OUTPUT_DIR":          "/tmp/x",
		"PORT":                "9000",
		"LOG_LEVEL":           "debug",
		"HMMSYNTH_REMOTE_URL": "http://synth:8080",
		"REMOTE_TIMEOUT":      "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, "models/churn.yaml", cfg.Model.File)
	assert.Equal(t, 120, cfg.Model.SeqLen)
	assert.Equal(t, 300, cfg.Model.DatasetSize)
	assert.Equal(t, uint64(18446744073709551615), cfg.Model.Seed)
	assert.Equal(t, 3, cfg.Export.Workers)
	assert.Equal(t, "/tmp/x", cfg.Export.OutputDir)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, internal.LogLevelDebug, cfg.Logger().GetLevel())
	assert.Equal(t, "http://synth:8080", cfg.Remote.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Remote.Timeout)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"seq_len one", map[string]string{"SEQ_LEN": "1"}},
		{"negative size", map[string]string{"DATASET_SIZE": "-4"}},
		{"unparsable", map[string]string{"WORKERS": "many"}},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"remote timeout", map[string]string{"REMOTE_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
