package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"abchat/internal/apperr"
)

var (
	cfgPath     string
	datasetPath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "abchat",
	Short: "Ask questions about A/B test results in natural language",
	Long: `abchat loads a per-store A/B test results file and answers questions about it:
filters, lift, significance tests and segment breakdowns, phrased by a language model
when one is configured.

Running without a subcommand starts the interactive chat (same as 'abchat chat').`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is fine
		_ = godotenv.Load()
	},
	RunE:          runChat,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit status: 2 when the dataset could not
// be loaded, 3 for invalid configuration or arguments, 1 for anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case apperr.IsFatal(err):
		return 2
	case apperr.KindOf(err) == apperr.KindValidation:
		return 3
	}
	return 1
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./abchat.yaml, then ~/.config/abchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "dataset", "", "results CSV, overrides dataset.path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides log.level")
}
