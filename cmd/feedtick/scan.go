package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/condatools/feedtick/internal/common/config"
	"github.com/condatools/feedtick/internal/common/logger"
	"github.com/condatools/feedtick/internal/tick"
)

var (
	scanUser  string
	scanToken string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report which feedstocks are out of date",
	Long: `Scan the feedstocks you maintain and report which ones lag behind their
PyPI release. Nothing is forked, written or submitted.

Examples:
  feedtick scan                 Check every feedstock you maintain
  feedtick scan --user octocat  Check octocat's feedstocks`,
	Run: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanUser, "user", "u", "", "GitHub username (resolved from the token when omitted)")
	scanCmd.Flags().StringVarP(&scanToken, "token", "t", "", "GitHub token (default: GH_TOKEN, then ~/.netrc)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	token, err := config.ResolveToken(scanToken)
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
		tick.WithUser(scanUser),
		tick.WithOverrides(overrides),
	)

	result, err := runner.Scan(cmd.Context())
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	result.Print(os.Stdout)
}
