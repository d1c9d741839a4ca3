package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arliden/comfygraph/pkg/workflow"
)

var inspectOutputNode string

var inspectCmd = &cobra.Command{
	Use:   "inspect [workflow.json]",
	Short: "Show the resolvable parameters of a workflow",
	Long: `Parses a workflow graph and prints the parameters the heuristic resolver can
locate in it: prompt texts, model, size and seed. Useful for checking which
overrides 'run' will be able to apply.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readWorkflow(args)
		if err != nil {
			return err
		}
		graph, err := workflow.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse workflow: %w", err)
		}
		anchor := inspectOutputNode
		if anchor == "" {
			anchor, err = graph.SinkID()
			if err != nil {
				return fmt.Errorf("resolve output node: %w", err)
			}
		}
		summary, err := workflow.Summarize(graph, anchor)
		if err != nil {
			return err
		}
		fmt.Printf("output node:     %s\n", anchor)
		fmt.Printf("prompt:          %s\n", summary.Text)
		fmt.Printf("negative prompt: %s\n", summary.NegativeText)
		fmt.Printf("model:           %s\n", summary.Model)
		fmt.Printf("size:            %dx%d\n", summary.Width, summary.Height)
		fmt.Printf("seed:            %d\n", summary.Seed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectOutputNode, "output-node", "", "anchor node id (default: the graph's sink)")
}
