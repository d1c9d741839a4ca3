package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arliden/comfygraph/internal/logging"
)

var (
	flagURL     string
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "comfygraph",
	Short: "Submit workflows to a ComfyUI server and collect the images",
	Long: `comfygraph submits node-graph workflows (ComfyUI "API format" JSON) to a
server, optionally overriding the semantic parameters buried inside the graph
(prompt text, seed, model, size, ...), and streams the generated images back
to disk as they complete.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "server base URL (default http://localhost:8188)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $HOME/.comfygraph.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// logger builds the CLI logger honoring --verbose.
func logger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return logging.New(level)
}
