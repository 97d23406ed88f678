package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dshills/patchpilot/internal/cache"
	"github.com/dshills/patchpilot/internal/config"
	"github.com/dshills/patchpilot/internal/github"
	"github.com/dshills/patchpilot/internal/output"
	"github.com/dshills/patchpilot/internal/pipeline"
	"github.com/dshills/patchpilot/internal/providers"
)

var (
	flagRepo        string
	flagPR          int
	flagProvider    string
	flagModel       string
	flagTargets     string
	flagMaxComments int
	flagNoTests     bool
	flagNoDocs      bool
	flagNoRedact    bool
	flagDryRun      bool
	flagFormat      string
	flagOut         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Review a pull request and publish the results",
	Long: "Fetch a pull request's changed files, ask the completion model for comments, tests, and docs, " +
		"then publish them. Repository and number default to the GitHub Actions context.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := output.GetWriter(flagFormat); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(ctx, buildOverrides())
		if err != nil {
			return err
		}
		if flagNoRedact {
			logging.GetLogger().Warn(ctx, "Secret redaction is disabled")
		}

		target, err := github.ResolveTarget(flagRepo, flagPR)
		if err != nil {
			return err
		}

		exitCode = runPR(ctx, cfg, target)
		return nil
	},
}

func loadConfig(ctx context.Context, overrides map[string]string) (config.Config, error) {
	path, err := config.FindPath(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(ctx, path, overrides)
}

// buildOverrides maps run flags onto config keys. Unset flags are omitted.
func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagTargets != "" {
		m["review.targetGlobs"] = flagTargets
	}
	if flagMaxComments > 0 {
		m["review.maxComments"] = strconv.Itoa(flagMaxComments)
	}
	if flagNoTests {
		m["tests.enabled"] = "false"
	}
	if flagNoDocs {
		m["docs.enabled"] = "false"
	}
	if flagNoRedact {
		m["privacy.redactSecrets"] = "false"
	}
	return m
}

func runPR(ctx context.Context, cfg config.Config, target github.Target) int {
	logger := logging.GetLogger()

	token, err := github.Token()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitAuthError
	}
	client, err := github.NewClient(ctx, token, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	host := github.NewHost(client, target.Owner, target.Repo)

	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		logger.Warn(ctx, "Response cache unavailable, continuing without it: %v", err)
		c = nil
	}
	completer, err := providers.New(cfg.Provider, cfg.Model, providers.Options{
		Temperature: cfg.Temperature,
		Cache:       c,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	logger.Info(ctx, "Reviewing %s with %s/%s", target, completer.Name(), completer.Model())
	stopSpinner := startSpinner(fmt.Sprintf("Reviewing %s ", target))
	res, err := pipeline.New(host, completer, cfg).Run(ctx, target.Number, flagDryRun)
	stopSpinner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	if err := output.WriteReport(res, flagFormat, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return ExitRuntimeError
	}
	return ExitSuccess
}

// exitCodeFor maps a run error onto an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case providers.IsAuthError(err), github.IsAuthError(err):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

// startSpinner shows progress on an interactive stderr and returns the stop
// function. In CI it does nothing.
func startSpinner(prefix string) func() {
	if flagDebug || !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Prefix = prefix
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&flagRepo, "repo", "", "Repository as owner/repo (default: $GITHUB_REPOSITORY or the origin remote)")
	f.IntVar(&flagPR, "pr", 0, "Pull request number (default: from $GITHUB_EVENT_PATH)")
	f.StringVar(&flagProvider, "provider", "", "Completion provider (openai, gemini, ollama)")
	f.StringVar(&flagModel, "model", "", "Model name")
	f.StringVar(&flagTargets, "targets", "", "Target path globs (comma-separated)")
	f.IntVar(&flagMaxComments, "max-comments", 0, "Maximum number of comments")
	f.BoolVar(&flagNoTests, "no-tests", false, "Do not commit generated tests")
	f.BoolVar(&flagNoDocs, "no-docs", false, "Do not commit generated docs")
	f.BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	f.BoolVar(&flagDryRun, "dry-run", false, "Build the publish plan without writing to GitHub")
	f.StringVar(&flagFormat, "format", "text", "Output format (text, json, markdown, sarif)")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
}
