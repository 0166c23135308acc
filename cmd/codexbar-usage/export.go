package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/zzfadi/CodexBar-sub002/internal/config"
	"github.com/zzfadi/CodexBar-sub002/internal/history"
)

func defaultHistoryPath() string {
	return filepath.Join(xdg.DataHome, "codexbar", "history.db")
}

func newExportCommand(cfg *config.Config) *cobra.Command {
	var (
		rf       rangeFlags
		provider string
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Store daily reports in a SQLite history database",
		Long:  "Upserts one row per provider and day, replacing days exported before, so usage outlives log rotation.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			providers, err := parseProviders(provider)
			if err != nil {
				return err
			}
			now := time.Now()
			since, until, err := rf.resolve(now)
			if err != nil {
				return err
			}
			reports, err := loadReports(cmd.Context(), providers, since, until, now, cfg.ScanOptions())
			if err != nil {
				return err
			}

			store, err := history.OpenStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, p := range providers {
				n, err := store.ExportReport(cmd.Context(), p, reports[p])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d day(s) of %s usage to %s\n", n, p, dbPath)
			}
			return nil
		},
	}
	rf.register(cmd, cfg.DefaultDays)
	cmd.Flags().StringVarP(&provider, "provider", "p", "all", "codex, claude or all")
	cmd.Flags().StringVar(&dbPath, "db", defaultHistoryPath(), "SQLite database path")
	return cmd
}
