package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cachepkg "github.com/galen-ai/galen/pkg/cache/sqlite"
	"github.com/galen-ai/galen/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			c, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\nHits:    %d\nMisses:  %d\n", stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			c, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Clear(expiredOnly); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Println("Expired artifacts cleared.")
			} else {
				fmt.Println("All cached artifacts cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired artifacts")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "galen.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
