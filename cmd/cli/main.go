package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hmmsynth/internal/config"
	"hmmsynth/internal/container"
)

// globalFlags override the environment for a single invocation
type globalFlags struct {
	model       string
	preset      string
	seqLen      int
	datasetSize int
	seed        uint64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "hmmsynth",
		Short:         "Synthetic sequence generator over two-layer hidden Markov models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.model, "model", "", "Model file (YAML or JSON); overrides HMMSYNTH_MODEL_FILE")
	pf.StringVar(&g.preset, "preset", "", "Built-in collection when no model file is set (demo, shopping)")
	pf.IntVar(&g.seqLen, "seq-len", 0, "Override the sequence length")
	pf.IntVar(&g.datasetSize, "dataset-size", 0, "Override the dataset size")
	pf.Uint64Var(&g.seed, "seed", 0, "Override the base seed")

	rootCmd.AddCommand(
		newGenerateCmd(g),
		newExportCmd(g),
		newDescribeCmd(g),
		newServeCmd(g),
		newValidateCmd(),
		newPresetsCmd(),
	)
	return rootCmd
}

// open loads configuration, applies the flags and builds the container.
func (g *globalFlags) open(cmd *cobra.Command) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if g.model != "" {
		cfg.Model.File = g.model
	}
	if cmd.Flags().Changed("seq-len") {
		if g.seqLen < 2 {
			return nil, fmt.Errorf("--seq-len must be greater than 1, got %d", g.seqLen)
		}
		cfg.Model.SeqLen = g.seqLen
	}
	if cmd.Flags().Changed("dataset-size") {
		cfg.Model.DatasetSize = g.datasetSize
	}
	if cmd.Flags().Changed("seed") {
		cfg.Model.Seed = g.seed
	}
	return container.New(cfg)
}
