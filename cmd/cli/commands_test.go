package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmmsynth/adapters/modelfile"
	"hmmsynth/internal/config"
	"hmmsynth/internal/container"
	"hmmsynth/internal/export"
	"hmmsynth/internal/testkit"
)

func TestRunValidate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := modelfile.NewStore(nil)

	good := filepath.Join(dir, "shopping.yaml")
	require.NoError(t, store.SaveCollection(ctx, good, testkit.ShoppingSpec()))
	assert.NoError(t, runValidate(ctx, good))

	broken := testkit.DemoSpec()
	broken.Models[0].HiddenTransitionMatrix = [][]float64{{1}}
	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, store.SaveCollection(ctx, bad, broken))
	assert.Error(t, runValidate(ctx, bad))

	assert.Error(t, runValidate(ctx, filepath.Join(dir, "missing.yaml")))
}

func TestRootCmd_Wiring(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"generate", "export", "describe", "serve", "validate", "presets"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"model", "preset", "seq-len", "dataset-size", "seed"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestPresetsCmd_UnknownPreset(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"presets", "nope"})
	assert.Error(t, root.Execute())
}

func TestRunDescribe_FromExportFile(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.LoadFrom(map[string]string{"LOG_LEVEL": "ERROR"})
	require.NoError(t, err)
	c, err := container.New(cfg)
	require.NoError(t, err)
	defer c.Close()

	spec := testkit.DemoSpec()
	spec.SeqLen = 5
	dir := t.TempDir()
	_, err = c.Exporter.ExportToDir(ctx, spec, dir, export.FormatCSV, c.OpenSink, export.Options{Count: 6})
	require.NoError(t, err)

	path := filepath.Join(dir, export.RecordsBase+"."+export.FormatCSV)
	src := describeSource{file: path, remote: "http://unused.invalid"}
	reader, err := src.open(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 6, reader.Size())
	assert.Equal(t, 2, reader.NumModels())
	assert.Equal(t, 5, reader.SeqLen())

	assert.NoError(t, runDescribe(ctx, c, src, 200, true))
	assert.Error(t, runDescribe(ctx, c, describeSource{file: filepath.Join(dir, "missing.csv")}, 10, true))
}
