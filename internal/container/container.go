package container

import (
	"context"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"

	"hmmsynth/adapters/api"
	"hmmsynth/adapters/excel"
	"hmmsynth/adapters/modelfile"
	"hmmsynth/adapters/rng"
	"hmmsynth/app"
	"hmmsynth/domain/modeldef"
	"hmmsynth/internal"
	internalapi "hmmsynth/internal/api"
	"hmmsynth/internal/config"
	"hmmsynth/internal/export"
	"hmmsynth/internal/profiling"
	"hmmsynth/internal/testkit"
	"hmmsynth/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	RNG        ports.RNGPort
	ModelStore ports.ModelStorePort
	Builder    *app.CollectionBuilder
	Exporter   *export.Service
	Profiler   *profiling.DataProfiler

	// Created by Server
	SSEHub *internalapi.SSEHub
	Jobs   *internalapi.JobManager
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	logger := cfg.Logger()
	rngAdapter := rng.NewStreamAdapter(logger)
	builder := app.NewCollectionBuilder(rngAdapter, logger)

	return &Container{
		Config:     cfg,
		Logger:     logger,
		RNG:        rngAdapter,
		ModelStore: modelfile.NewStore(logger),
		Builder:    builder,
		Exporter:   export.NewService(builder, logger),
		Profiler:   profiling.NewDataProfiler(),
	}, nil
}

// LoadSpec returns the configured collection: the model file when one is
// set, otherwise the named preset (HMMSYNTH_PRESET when preset is empty).
// Non-zero SEQ_LEN, DATASET_SIZE and SEED override the loaded values.
func (c *Container) LoadSpec(ctx context.Context, preset string) (modeldef.CollectionSpec, error) {
	if preset == "" {
		preset = c.Config.Model.Preset
	}
	var (
		spec modeldef.CollectionSpec
		err  error
	)
	switch {
	case c.Config.Model.File != "":
		spec, err = c.ModelStore.LoadCollection(ctx, c.Config.Model.File)
	case preset != "":
		spec, err = testkit.Preset(preset)
	default:
		spec, err = testkit.Preset(testkit.PresetDemo)
	}
	if err != nil {
		return modeldef.CollectionSpec{}, err
	}

	if c.Config.Model.SeqLen != 0 {
		spec.SeqLen = c.Config.Model.SeqLen
	}
	if c.Config.Model.DatasetSize != 0 {
		spec.DatasetSize = c.Config.Model.DatasetSize
	}
	if c.Config.Model.Seed != 0 {
		spec.Seed = c.Config.Model.Seed
	}
	return spec, nil
}

// OpenSink opens an excel or CSV sink; the extension selects the format.
func (c *Container) OpenSink(path string) (ports.RecordSink, error) {
	return excel.NewDataWriter(excel.DefaultWriterConfig(path), c.Logger)
}

// Server wires the item server for spec with the export job API mounted
// under /api/exports.
func (c *Container) Server(ctx context.Context, spec modeldef.CollectionSpec) (*api.Server, error) {
	collection, err := c.Builder.Build(ctx, spec)
	if err != nil {
		return nil, err
	}

	c.SSEHub = internalapi.NewSSEHub(c.Logger)
	c.Jobs = internalapi.NewJobManager(c.Exporter, c.OpenSink, c.Config.Export.OutputDir, c.SSEHub, c.Logger)
	handler := internalapi.NewExportHandler(c.Jobs, c.SSEHub, testkit.Preset, c.Logger)

	if c.Logger.GetLevel() < internal.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := []api.Option{api.WithMount("/api/exports", internalapi.NewRouter(handler))}
	if c.Config.Server.Token != "" {
		opts = append(opts, api.WithToken(c.Config.Server.Token))
	}
	return api.NewServer(collection, c.Logger, opts...)
}

// Addr is the listen address for the configured port
func (c *Container) Addr() string {
	return net.JoinHostPort("", c.Config.Server.Port)
}

// RemoteReader connects to the configured remote item server
func (c *Container) RemoteReader(ctx context.Context, url string) (*api.RemoteReader, error) {
	if url == "" {
		url = c.Config.Remote.URL
	}
	if url == "" {
		return nil, fmt.Errorf("no remote URL: set --remote or HMMSYNTH_REMOTE_URL")
	}
	cfg := api.DefaultRemoteConfig(url)
	cfg.Token = c.Config.Remote.Token
	cfg.Timeout = c.Config.Remote.Timeout
	return api.NewRemoteReader(ctx, cfg)
}

// Close stops background jobs
func (c *Container) Close() {
	if c.Jobs != nil {
		c.Jobs.Close()
	}
}
