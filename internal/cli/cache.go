package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/patchpilot/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the completion response cache",
}

// openCache opens the configured cache directory even when caching is
// disabled for runs.
func openCache(cmd *cobra.Command) (*cache.Cache, error) {
	cfg, err := loadConfig(cmd.Context(), nil)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		n, err := c.Clear()
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d entries removed).\n", n)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired and unreadable cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		n, err := c.Prune()
		if err != nil {
			return fmt.Errorf("pruning cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries.\n", n)
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"stats"},
	Short:   "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		stats, err := c.GetStats()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheShowCmd)
}
