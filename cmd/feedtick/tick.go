package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/condatools/feedtick/internal/common/config"
	"github.com/condatools/feedtick/internal/common/logger"
	"github.com/condatools/feedtick/internal/tick"
)

var (
	// tickUser overrides the acting GitHub login
	tickUser string
	// tickToken is the GitHub credential
	tickToken string
	// tickDryRun computes patches without pushing anything
	tickDryRun bool
	// tickNoRegen skips the regeneration cycle
	tickNoRegen bool
	// tickNoRerender is the historical spelling of --no-regenerate
	tickNoRerender bool
	// tickLimit caps how many feedstocks one run updates
	tickLimit int
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Tick out-of-date feedstocks and open pull requests",
	Long: `Scan the feedstocks you maintain, update version and checksum in every
out-of-date recipe that has no dependency on another out-of-date feedstock,
regenerate the scaffolding and open one pull request per update.

Examples:
  feedtick tick                      Update everything that can be updated
  feedtick tick --dry-run            Show what would be updated, push nothing
  feedtick tick --no-regenerate      Skip the conda-smithy rerender step
  feedtick tick --limit 5            Update at most five feedstocks
  feedtick tick --user octocat       Act as octocat instead of the token owner`,
	Run: runTick,
}

func init() {
	tickCmd.Flags().StringVarP(&tickUser, "user", "u", "", "GitHub username (resolved from the token when omitted)")
	tickCmd.Flags().StringVarP(&tickToken, "token", "t", "", "GitHub token (default: GH_TOKEN, then ~/.netrc)")
	tickCmd.Flags().BoolVar(&tickDryRun, "dry-run", false, "Compute patches but push nothing")
	tickCmd.Flags().BoolVar(&tickNoRegen, "no-regenerate", false, "Skip regenerating feedstocks after updating")
	tickCmd.Flags().BoolVar(&tickNoRerender, "no-rerender", false, "Alias for --no-regenerate")
	tickCmd.Flags().MarkHidden("no-rerender")
	tickCmd.Flags().IntVar(&tickLimit, "limit", 0, "Update at most N feedstocks (0 = no limit)")

	rootCmd.AddCommand(tickCmd)
}

func runTick(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	token, err := config.ResolveToken(tickToken)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	overrides, err := config.LoadOverrides()
	if err != nil {
		logger.Error("loading overrides: %v", err)
		os.Exit(1)
	}

	runner := tick.NewRunner(cfg, token,
		tick.WithUser(tickUser),
		tick.WithDryRun(tickDryRun),
		tick.WithNoRegenerate(tickNoRegen || tickNoRerender),
		tick.WithLimit(tickLimit),
		tick.WithOverrides(overrides),
	)

	report, err := runner.Run(cmd.Context())
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	report.Print(os.Stdout)
}
