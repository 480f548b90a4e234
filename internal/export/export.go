package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"hmmsynth/app"
	"hmmsynth/domain/core"
	"hmmsynth/domain/modeldef"
	"hmmsynth/domain/run"
	"hmmsynth/domain/synth"
	"hmmsynth/internal"
	"hmmsynth/ports"
)

const defaultBatchSize = 256

// Options controls how an export is partitioned.
//
// Records are split into batches of BatchSize; batch b is generated by
// worker b mod Workers, each worker owning its own generators and random
// streams. Output therefore depends on Workers and BatchSize but not on
// Parallelism, which only bounds how many workers run at once.
type Options struct {
	Count       int // defaults to the spec's dataset_size
	Workers     int // defaults to 1
	Parallelism int // defaults to Workers
	BatchSize   int // defaults to 256

	// Progress, when set, is called after every written round with the
	// number of records written so far.
	Progress func(done, total int)
}

func (o Options) withDefaults(spec modeldef.CollectionSpec) Options {
	if o.Count <= 0 {
		o.Count = spec.DatasetSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Parallelism <= 0 || o.Parallelism > o.Workers {
		o.Parallelism = o.Workers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	return o
}

// Service generates whole datasets in parallel and hands the records to a
// sink in index order.
type Service struct {
	builder *app.CollectionBuilder
	logger  *internal.Logger
}

// NewService creates an export service
func NewService(builder *app.CollectionBuilder, logger *internal.Logger) *Service {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Service{builder: builder, logger: logger}
}

// Export writes records 0..Count-1 of spec to sink and returns the run
// manifest. The sink is closed in every case.
func (s *Service) Export(ctx context.Context, spec modeldef.CollectionSpec, sink ports.RecordSink, opts Options) (manifest *run.Manifest, err error) {
	closed := false
	defer func() {
		if !closed {
			_, _ = sink.Close()
		}
	}()

	opts = opts.withDefaults(spec)
	spec = s.builder.ResolveSeed(spec)
	specHash, err := SpecHash(spec)
	if err != nil {
		return nil, err
	}

	collections := make([]*app.SequenceCollection, opts.Workers)
	for w := range collections {
		c, err := s.builder.BuildWorker(ctx, spec, w)
		if err != nil {
			return nil, err
		}
		collections[w] = c
	}

	columns, err := s.columns(ctx, spec, opts.Workers)
	if err != nil {
		return nil, err
	}
	if err := sink.SetColumns(columns); err != nil {
		return nil, fmt.Errorf("set sink columns: %w", err)
	}

	models := make([]string, len(spec.Models))
	for i := range spec.Models {
		models[i] = spec.ModelName(i)
	}
	fp := run.NewRunFingerprint(specHash, spec.Seed, opts.Workers, opts.BatchSize, opts.Count, run.CodeVersion)
	manifest = run.NewManifest(fp, spec.SeqLen, models)
	manifest.Columns = columns
	s.logger.Info("export %s: %d records, %d workers, batch %d", manifest.RunID, opts.Count, opts.Workers, opts.BatchSize)

	sem := semaphore.NewWeighted(int64(opts.Parallelism))
	round := opts.BatchSize * opts.Workers
	for start := 0; start < opts.Count; start += round {
		buf := make([]synth.Record, min(round, opts.Count-start))

		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < opts.Workers; w++ {
			lo := start + w*opts.BatchSize
			if lo >= opts.Count {
				break
			}
			hi := min(lo+opts.BatchSize, opts.Count)
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
				for i := lo; i < hi; i++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					rec, err := collections[w].Get(i)
					if err != nil {
						return fmt.Errorf("worker %d: %w", w, err)
					}
					buf[i-start] = rec
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for k, rec := range buf {
			if err := sink.Write(ctx, start+k, rec); err != nil {
				return nil, fmt.Errorf("write item %d: %w", start+k, err)
			}
			manifest.ClassCounts[rec.ClassLabel]++
		}
		s.logger.Debug("export %s: %d/%d records", manifest.RunID, start+len(buf), opts.Count)
		if opts.Progress != nil {
			opts.Progress(start+len(buf), opts.Count)
		}
	}

	closed = true
	files, err := sink.Close()
	if err != nil {
		return nil, fmt.Errorf("close sink: %w", err)
	}
	manifest.Files = files
	manifest.Duration = manifest.CreatedAt.Since()
	s.logger.Info("export %s: done in %v", manifest.RunID, manifest.Duration)
	return manifest, nil
}

// columns returns the union of the post-transform columns of every model,
// sampled from one record per model. The sample collection uses a worker
// index no export worker has, so the exported streams are untouched.
func (s *Service) columns(ctx context.Context, spec modeldef.CollectionSpec, worker int) ([]string, error) {
	c, err := s.builder.BuildWorker(ctx, spec, worker)
	if err != nil {
		return nil, err
	}
	var union []string
	for k := 0; k < c.NumModels(); k++ {
		rec, err := c.Get(k)
		if err != nil {
			return nil, fmt.Errorf("sample columns: %w", err)
		}
		union = append(union, rec.Names()...)
	}
	slices.Sort(union)
	return slices.Compact(union), nil
}

// Output formats accepted by ExportToDir.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Output file names inside an export directory.
const (
	RecordsBase  = "records"
	ManifestFile = "manifest.json"
)

// SinkFactory opens a sink that writes to path.
type SinkFactory func(path string) (ports.RecordSink, error)

// ExportToDir writes records.<format> and manifest.json under dir.
func (s *Service) ExportToDir(ctx context.Context, spec modeldef.CollectionSpec, dir, format string, open SinkFactory, opts Options) (*run.Manifest, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, core.NewArgumentError("format", fmt.Sprintf("want %s or %s, got %q", FormatCSV, FormatXLSX, format))
	}
	sink, err := open(filepath.Join(dir, RecordsBase+"."+format))
	if err != nil {
		return nil, err
	}
	m, err := s.Export(ctx, spec, sink, opts)
	if err != nil {
		return nil, err
	}
	if err := WriteManifest(filepath.Join(dir, ManifestFile), m); err != nil {
		return nil, err
	}
	return m, nil
}

// SpecHash fingerprints the canonical JSON encoding of spec.
func SpecHash(spec modeldef.CollectionSpec) (core.SpecHash, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encode spec: %w", err)
	}
	return core.NewSpecHash(data), nil
}

// WriteManifest stores m as indented JSON at path.
func WriteManifest(path string, m *run.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*run.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m run.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &m, nil
}
