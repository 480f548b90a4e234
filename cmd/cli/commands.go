package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hmmsynth/adapters/excel"
	"hmmsynth/adapters/modelfile"
	"hmmsynth/app"
	"hmmsynth/domain/modeldef"
	"hmmsynth/internal/container"
	"hmmsynth/internal/export"
	"hmmsynth/internal/profiling"
	"hmmsynth/internal/testkit"
	"hmmsynth/ports"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "generate [index...]",
		Short: "Print records as JSON lines",
		Long: `Print records of the configured collection as JSON lines. Record i is
drawn from model i mod K, so its class label depends only on i mod K. The
record itself depends on every earlier draw from that model.

Example: hmmsynth generate 0 1 2 --preset shopping --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			indices := make([]int, 0, len(args))
			for _, arg := range args {
				i, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("index %q is not an integer", arg)
				}
				indices = append(indices, i)
			}
			if len(indices) == 0 {
				for i := 0; i < count; i++ {
					indices = append(indices, i)
				}
			}
			c, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return runGenerate(cmd.Context(), c, g.preset, indices)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Records to print when no index is given")
	return cmd
}

func runGenerate(ctx context.Context, c *container.Container, preset string, indices []int) error {
	spec, err := c.LoadSpec(ctx, preset)
	if err != nil {
		return err
	}
	collection, err := c.Builder.Build(ctx, spec)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, i := range indices {
		rec, err := collection.Get(i)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

type exportFlags struct {
	out         string
	format      string
	count       int
	workers     int
	parallelism int
	batchSize   int
}

func newExportCmd(g *globalFlags) *cobra.Command {
	f := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a dataset to CSV or XLSX with a run manifest",
		Long: `Generate a whole dataset in parallel and write it to <out>/records.<format>
next to manifest.json. Output depends on --workers and --batch-size but not
on --parallelism.

Example: hmmsynth export --preset demo --out ./out --format xlsx --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return runExport(cmd.Context(), c, g.preset, f)
		},
	}

	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output directory (default OUTPUT_DIR)")
	cmd.Flags().StringVar(&f.format, "format", export.FormatCSV, "Output format: csv|xlsx")
	cmd.Flags().IntVar(&f.count, "count", 0, "Records to write (default dataset_size)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Generator workers (default WORKERS)")
	cmd.Flags().IntVar(&f.parallelism, "parallelism", 0, "Workers running at once (default --workers)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Records per batch (default 256)")
	return cmd
}

func runExport(ctx context.Context, c *container.Container, preset string, f *exportFlags) error {
	spec, err := c.LoadSpec(ctx, preset)
	if err != nil {
		return err
	}
	out := f.out
	if out == "" {
		out = c.Config.Export.OutputDir
	}
	workers := f.workers
	if workers <= 0 {
		workers = c.Config.Export.Workers
	}

	fmt.Printf("📦 Exporting %d models to %s (%s, %d workers)...\n", len(spec.Models), out, f.format, workers)
	start := time.Now()
	lastPct := -1
	manifest, err := c.Exporter.ExportToDir(ctx, spec, out, f.format, c.OpenSink, export.Options{
		Count:       f.count,
		Workers:     workers,
		Parallelism: f.parallelism,
		BatchSize:   f.batchSize,
		Progress: func(done, total int) {
			pct := done * 100 / total
			if pct/10 != lastPct/10 {
				lastPct = pct
				fmt.Printf("   %3d%% (%d/%d)\n", pct, done, total)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("\n📊 EXPORT RESULTS\n")
	fmt.Printf("Run ID: %s\n", manifest.RunID)
	fmt.Printf("Fingerprint: %s\n", manifest.Fingerprint.Fingerprint)
	fmt.Printf("Records: %d (seq_len %d)\n", manifest.Records(), manifest.SeqLen)
	fmt.Printf("Columns: %s\n", strings.Join(manifest.Columns, ", "))
	labels := make([]int, 0, len(manifest.ClassCounts))
	for label := range manifest.ClassCounts {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	for _, label := range labels {
		fmt.Printf("   class %d (%s): %d\n", label, manifest.Models[label], manifest.ClassCounts[label])
	}
	for _, file := range manifest.Files {
		fmt.Printf("💾 %s\n", file)
	}
	fmt.Printf("\n✅ Export completed in %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func newDescribeCmd(g *globalFlags) *cobra.Command {
	var (
		n      int
		remote string
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Profile a sample of records",
		Long: `Draw the first n records and summarize every column: moments, quantiles,
outliers, a normality test and lag-1 autocorrelation within sequences.

With --remote (or HMMSYNTH_REMOTE_URL) the records are read from a running
item server instead of being generated locally. With --file they are read
back from an exported records.csv or records.xlsx.

Example: hmmsynth describe --preset shopping -n 500
         hmmsynth describe --remote http://localhost:8080 --json
         hmmsynth describe --file out/records.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return runDescribe(cmd.Context(), c, describeSource{preset: g.preset, remote: remote, file: file}, n, asJSON)
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 200, "Records to sample")
	cmd.Flags().StringVar(&remote, "remote", "", "Item server URL (default HMMSYNTH_REMOTE_URL)")
	cmd.Flags().StringVar(&file, "file", "", "Exported records file to read instead")
	cmd.MarkFlagsMutuallyExclusive("remote", "file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

// describeSource picks where describe reads records from. A file wins over
// a remote server, which wins over local generation.
type describeSource struct {
	preset string
	remote string
	file   string
}

func (s describeSource) open(ctx context.Context, c *container.Container) (ports.ItemReader, error) {
	switch {
	case s.file != "":
		return excel.LoadItems(s.file, c.Logger)
	case s.remote != "" || c.Config.Remote.URL != "":
		return c.RemoteReader(ctx, s.remote)
	}
	spec, err := c.LoadSpec(ctx, s.preset)
	if err != nil {
		return nil, err
	}
	return c.Builder.Build(ctx, spec)
}

func runDescribe(ctx context.Context, c *container.Container, src describeSource, n int, asJSON bool) error {
	reader, err := src.open(ctx, c)
	if err != nil {
		return err
	}
	if src.file != "" {
		n = min(n, reader.Size())
	}

	summary, err := c.Profiler.Describe(ctx, reader, n)
	if err != nil {
		return fmt.Errorf("describe failed: %w", err)
	}
	if collection, ok := reader.(*app.SequenceCollection); ok {
		perModel := max(1, n/collection.NumModels())
		summary.Occupancy, err = c.Profiler.Occupancy(ctx, collection.Generators(), collection.SeqLen(), perModel)
		if err != nil {
			return fmt.Errorf("state occupancy: %w", err)
		}
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(summary)
	return nil
}

func printSummary(summary profiling.DatasetSummary) {
	fmt.Printf("🔬 %d records, seq_len %d\n", summary.Records, summary.SeqLen)
	labels := make([]int, 0, len(summary.ClassCounts))
	for label := range summary.ClassCounts {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	for _, label := range labels {
		fmt.Printf("   class %d: %d\n", label, summary.ClassCounts[label])
	}

	fmt.Printf("\n📈 COLUMNS\n")
	for _, col := range summary.Columns {
		fmt.Printf("• %s (%s, n=%d)\n", col.Name, col.Type, col.Count)
		fmt.Printf("   mean %.4f  sd %.4f  min %.4f  max %.4f\n", col.Mean, col.StdDev, col.Min, col.Max)
		fmt.Printf("   q25 %.4f  median %.4f  q75 %.4f  outliers %d\n", col.Q25, col.Median, col.Q75, col.Outliers)
		fmt.Printf("   skew %.3f  kurtosis %.3f  normal %t (p=%.3f)  lag1 %.3f\n",
			col.Skewness, col.Kurtosis, col.IsNormal, col.NormalityP, col.Lag1)
		if len(col.Levels) > 0 {
			levels := make([]int64, 0, len(col.Levels))
			for v := range col.Levels {
				levels = append(levels, v)
			}
			sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
			parts := make([]string, len(levels))
			for i, v := range levels {
				parts[i] = fmt.Sprintf("%d:%d", v, col.Levels[v])
			}
			fmt.Printf("   levels %s\n", strings.Join(parts, " "))
		}
	}

	if len(summary.Occupancy) > 0 {
		fmt.Printf("\n🧭 STATE OCCUPANCY\n")
		for _, occ := range summary.Occupancy {
			fmt.Printf("• model %d\n", occ.Model)
			fmt.Printf("   hidden   %s\n", shares(occ.Hidden))
			fmt.Printf("   emitted  %s\n", shares(occ.Emitted))
			fmt.Printf("   observed %s\n", shares(occ.Observed))
		}
	}
}

func shares(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d:%.3f", i, v)
	}
	return strings.Join(parts, " ")
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve records and export jobs over HTTP",
		Long: `Serve the configured collection:

  GET  /healthz
  GET  /api/size | /api/schema | /api/items/{index}
  POST /api/exports, GET /api/exports[/{id}[/events]]

Set HMMSYNTH_API_TOKEN to require a bearer token on /api.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			if port != "" {
				c.Config.Server.Port = port
			}
			return runServe(cmd.Context(), c, g.preset)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default PORT)")
	return cmd
}

func runServe(ctx context.Context, c *container.Container, preset string) error {
	spec, err := c.LoadSpec(ctx, preset)
	if err != nil {
		return err
	}
	srv, err := c.Server(ctx, spec)
	if err != nil {
		return err
	}
	return srv.Run(ctx, c.Addr(), c.Config.Server.ShutdownTimeout)
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [model-file]",
		Short: "Check a model file and compile every model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0])
		},
	}
}

func runValidate(ctx context.Context, path string) error {
	spec, err := modelfile.NewStore(nil).LoadCollection(ctx, path)
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if err := compileAll(spec); err != nil {
		return err
	}

	fmt.Printf("✅ %s: %d models, seq_len %d, dataset_size %d\n", path, len(spec.Models), spec.SeqLen, spec.DatasetSize)
	for i, m := range spec.Models {
		fmt.Printf("   %d. %s: %d observed, %d hidden states\n", i, spec.ModelName(i), len(m.ObservedStates), len(m.HiddenStates))
	}
	return nil
}

// compileAll builds every generator once so shape and probability errors
// surface before any record is drawn.
func compileAll(spec modeldef.CollectionSpec) error {
	for _, m := range spec.Models {
		if _, err := m.Generator(rand.NewPCG(spec.Seed, 0)); err != nil {
			return err
		}
	}
	return nil
}

func newPresetsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "List built-in collections or print one as a model file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range testkit.Presets() {
					fmt.Println(name)
				}
				return nil
			}
			spec, err := testkit.Preset(args[0])
			if err != nil {
				return err
			}
			format := modelfile.FormatYAML
			if asJSON {
				format = modelfile.FormatJSON
			}
			data, err := modelfile.Encode(spec, format)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of YAML")
	return cmd
}
