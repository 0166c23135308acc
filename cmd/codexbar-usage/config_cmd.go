package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zzfadi/CodexBar-sub002/internal/config"
	"github.com/zzfadi/CodexBar-sub002/internal/costusage"
)

func newConfigCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings and cache locations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "settings: %s\n", config.ConfigPath())
			fmt.Fprintf(out, "cache:    %s\n", costusage.NewCacheStore(cfg.CacheDir).Dir)
			fmt.Fprintf(out, "history:  %s\n", defaultHistoryPath())
			return nil
		},
	})

	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the current values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ConfigPath()
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := config.SaveTo(path, *cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing settings file")
	cmd.AddCommand(initCmd)

	return cmd
}
