package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/patchpilot/internal/providers"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Provider and model management",
}

type modelInfo struct {
	Provider string
	Models   []string
}

// knownModels lists models with a strict JSON output mode.
var knownModels = []modelInfo{
	{
		Provider: "openai",
		Models: []string{
			"gpt-4o-mini",
			"gpt-4o",
			"gpt-4.1-mini",
			"gpt-4.1",
		},
	},
	{
		Provider: "gemini",
		Models: []string{
			"gemini-2.5-flash",
			"gemini-2.5-pro",
			"gemini-2.0-flash",
		},
	},
	{
		Provider: "ollama",
		Models: []string{
			"llama3.1",
			"qwen2.5-coder",
			"deepseek-coder-v2",
		},
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known providers and models",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		for _, info := range knownModels {
			fmt.Fprintf(w, "%s:\n", info.Provider)
			for _, m := range info.Models {
				fmt.Fprintf(w, "  - %s\n", m)
			}
			fmt.Fprintln(w)
		}
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the configured provider answers in JSON mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context(), buildOverrides())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Checking %s (%s)...\n", cfg.Provider, cfg.Model)

		c, err := providers.New(cfg.Provider, cfg.Model, providers.Options{Temperature: cfg.Temperature})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", err)
			exitCode = exitCodeFor(err)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		_, err = c.Complete(ctx, []providers.Message{
			{Role: providers.RoleSystem, Content: `Respond with exactly {"ok": true}`},
			{Role: providers.RoleUser, Content: "ping"},
		}, 16)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", err)
			exitCode = exitCodeFor(err)
			return nil
		}

		fmt.Fprintf(w, "OK: %s is configured and responding\n", cfg.Provider)
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsDoctorCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider to check")
	modelsDoctorCmd.Flags().StringVar(&flagModel, "model", "", "Model to check")
}
