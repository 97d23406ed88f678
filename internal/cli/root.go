package cli

import (
	"fmt"
	"os"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dshills/patchpilot/internal/pipeline"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var (
	flagConfig string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "patchpilot",
	Short: "Pull request review bot",
	Long:  "patchpilot reviews a pull request's diff with a completion model and publishes inline comments, generated tests, and generated docs.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(flagDebug)
	},
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// setupLogging installs the process-wide logger on stderr.
func setupLogging(debug bool) {
	level := logging.INFO
	if debug {
		level = logging.DEBUG
	}
	color := isatty.IsTerminal(os.Stderr.Fd())
	logger := logging.NewLogger(logging.Config{
		Severity: level,
		Outputs:  []logging.Output{logging.NewConsoleOutput(true, logging.WithColor(color))},
	})
	logging.SetLogger(logger)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print patchpilot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "patchpilot version %s\n", pipeline.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $PATCHPILOT_CONFIG, .github/patchpilot.{json,toml}, then user config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}
