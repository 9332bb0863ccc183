package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/condatools/feedtick/internal/common/config"
	"github.com/condatools/feedtick/internal/common/logger"
	"github.com/condatools/feedtick/internal/common/output"
)

var (
	verbose    bool
	quiet      bool
	noColor    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "feedtick",
	Short: "Keep conda-forge feedstocks ticking",
	Long: `feedtick keeps the conda-forge feedstocks you maintain at the latest
PyPI release: it scans your feedstocks, ticks version and checksum in each
out-of-date recipe, regenerates the scaffolding and opens pull requests.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Configure logging based on flags
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
}

// loadConfig honors the --config flag, falling back to the default lookup.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
