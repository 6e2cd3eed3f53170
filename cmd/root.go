package cmd

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/plexgraph/plexgraph/models"
)

var version = "0.3.0"

var (
	configPath string
	verbose    bool

	good = color.New(color.FgGreen)
	bad  = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "plexgraph",
	Short: "plexgraph — force-directed graph layout and rendering",
	Long: "plexgraph lays out graphs with a force simulation and renders them\n" +
		"through a level-of-detail pipeline, headless or as a streaming server.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("plexgraph {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		layoutCmd(),
		serveCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		bad.Fprintf(os.Stderr, "plexgraph: %v\n", err)
		return err
	}
	return nil
}

func newLogger() *slog.Logger {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func loadEngineConfig() (models.Config, error) {
	if configPath == "" {
		return models.DefaultConfig(), nil
	}
	return models.LoadConfig(configPath)
}
