package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arliden/comfygraph"
	"github.com/arliden/comfygraph/pkg/workflow"
)

var runFlags struct {
	out        string
	outputNode string
	text       string
	negative   string
	model      string
	sampler    string
	seed       int64
	steps      int
	cfg        float64
	denoise    float64
	width      int
	height     int
	batch      int
}

var runCmd = &cobra.Command{
	Use:   "run [workflow.json]",
	Short: "Submit a workflow and save the generated images",
	Long: `Reads a workflow graph from the given file (or stdin when the argument is
"-" or absent), applies any parameter overrides, submits it, and writes each
generated image to the output directory as <node id>-<n>.png.

Overrides are resolved heuristically: the graph is walked upstream from its
output node to find the node hosting each parameter, so the same flags work
across different workflow layouts. An override targeting a parameter the
graph does not expose is an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		raw, err := readWorkflow(args)
		if err != nil {
			return err
		}
		graph, err := workflow.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse workflow: %w", err)
		}
		anchor := runFlags.outputNode
		if anchor == "" {
			anchor = cfg.OutputNode
		}
		if err := applyOverrides(cmd, graph, anchor); err != nil {
			return err
		}

		outDir := runFlags.out
		if outDir == "" {
			outDir = cfg.OutputDir
		}
		if outDir == "" {
			outDir = "."
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		client, err := comfygraph.New(serverURL(cfg), comfygraph.WithLogger(log))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		images, err := client.Stream(ctx, graph)
		if err != nil {
			return err
		}
		count := make(map[string]int)
		for out := range images {
			if out.Err != nil {
				return out.Err
			}
			count[out.Node]++
			name := filepath.Join(outDir, fmt.Sprintf("%s-%d.png", out.Node, count[out.Node]))
			if err := os.WriteFile(name, out.Image, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			log.Info("image saved", "node", out.Node, "file", name)
		}
		return nil
	},
}

func readWorkflow(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read workflow from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return raw, nil
}

// applyOverrides pushes each changed flag through the accessor layer.
func applyOverrides(cmd *cobra.Command, g *workflow.Graph, anchor string) error {
	set := func(name string, apply func() error) error {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		if err := apply(); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		return nil
	}
	steps := []struct {
		name  string
		apply func() error
	}{
		{"prompt", func() error {
			v, err := g.TextFrom(anchor)
			if err == nil {
				*v = runFlags.text
			}
			return err
		}},
		{"negative", func() error {
			v, err := g.NegativeTextFrom(anchor)
			if err == nil {
				*v = runFlags.negative
			}
			return err
		}},
		{"model", func() error {
			v, err := g.ModelFrom(anchor)
			if err == nil {
				*v = runFlags.model
			}
			return err
		}},
		{"sampler", func() error {
			v, err := g.SamplerNameFrom(anchor)
			if err == nil {
				*v = runFlags.sampler
			}
			return err
		}},
		{"seed", func() error {
			v, err := g.SeedFrom(anchor)
			if err == nil {
				*v = runFlags.seed
			}
			return err
		}},
		{"steps", func() error {
			v, err := g.StepsFrom(anchor)
			if err == nil {
				*v = runFlags.steps
			}
			return err
		}},
		{"cfg", func() error {
			v, err := g.CFGFrom(anchor)
			if err == nil {
				*v = runFlags.cfg
			}
			return err
		}},
		{"denoise", func() error {
			v, err := g.DenoiseFrom(anchor)
			if err == nil {
				*v = runFlags.denoise
			}
			return err
		}},
		{"width", func() error {
			v, err := g.WidthFrom(anchor)
			if err == nil {
				*v = runFlags.width
			}
			return err
		}},
		{"height", func() error {
			v, err := g.HeightFrom(anchor)
			if err == nil {
				*v = runFlags.height
			}
			return err
		}},
		{"batch", func() error {
			v, err := g.BatchSizeFrom(anchor)
			if err == nil {
				*v = runFlags.batch
			}
			return err
		}},
	}
	for _, s := range steps {
		if err := set(s.name, s.apply); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.out, "out", "o", "", "directory for generated images (default .)")
	runCmd.Flags().StringVar(&runFlags.outputNode, "output-node", "", "anchor node id for parameter resolution (default: the graph's sink)")
	runCmd.Flags().StringVar(&runFlags.text, "prompt", "", "override the positive prompt text")
	runCmd.Flags().StringVar(&runFlags.negative, "negative", "", "override the negative prompt text")
	runCmd.Flags().StringVar(&runFlags.model, "model", "", "override the checkpoint name")
	runCmd.Flags().StringVar(&runFlags.sampler, "sampler", "", "override the sampler name")
	runCmd.Flags().Int64Var(&runFlags.seed, "seed", 0, "override the seed")
	runCmd.Flags().IntVar(&runFlags.steps, "steps", 0, "override the step count")
	runCmd.Flags().Float64Var(&runFlags.cfg, "cfg", 0, "override the cfg scale")
	runCmd.Flags().Float64Var(&runFlags.denoise, "denoise", 0, "override the denoise strength")
	runCmd.Flags().IntVar(&runFlags.width, "width", 0, "override the latent width")
	runCmd.Flags().IntVar(&runFlags.height, "height", 0, "override the latent height")
	runCmd.Flags().IntVar(&runFlags.batch, "batch", 0, "override the batch size")
}
