package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenesmith/internal/config"
	"scenesmith/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scenesmith",
	Short: "scenesmith - compilation pipeline for generated video scenes",
	Long: `scenesmith turns machine-generated scene source into execution-ready
artifacts that load safely alongside sibling scenes in one shared runtime
namespace.

The pipeline repairs mechanical syntax defects, enforces the execution
contract, resolves cross-scene identifier conflicts, compiles, validates,
and falls back to a diagnostic placeholder when a scene is beyond saving.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(verbose || cfg.Logging.Debug)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "scenesmith.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
