package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/zzfadi/CodexBar-sub002/internal/config"
	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/history"
)

func newHistoryCommand(cfg *config.Config) *cobra.Command {
	var (
		rf         rangeFlags
		provider   string
		dbPath     string
		withModels bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show days stored by export",
		Long:  "Reads the SQLite history database, which keeps exported days after their logs are gone.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			providers, err := parseProviders(provider)
			if err != nil {
				return err
			}
			since, until, err := rf.resolve(time.Now())
			if err != nil {
				return err
			}

			store, err := history.OpenStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			return writeHistory(cmd.Context(), cmd.OutOrStdout(), store, providers, core.DayKey(since), core.DayKey(until), withModels)
		},
	}
	rf.register(cmd, cfg.DefaultDays)
	cmd.Flags().StringVarP(&provider, "provider", "p", "all", "codex, claude or all")
	cmd.Flags().StringVar(&dbPath, "db", defaultHistoryPath(), "SQLite database path")
	cmd.Flags().BoolVar(&withModels, "models", false, "list per-model token totals under each day")
	return cmd
}

func writeHistory(ctx context.Context, out io.Writer, store *history.Store, providers []core.ProviderID, sinceKey, untilKey string, withModels bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tDAY\tINPUT\tOUTPUT\tTOTAL\tCOST\tEXPORTED\tMODELS")

	for _, p := range providers {
		rows, err := store.DailyRows(ctx, p, sinceKey, untilKey)
		if err != nil {
			return err
		}
		for _, r := range rows {
			exported := "-"
			if !r.ExportedAt.IsZero() {
				exported = r.ExportedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", p, r.Day,
				formatTokens(r.InputTokens), formatTokens(r.OutputTokens), formatTokens(r.TotalTokens),
				formatCost(r.CostUSD), exported, strings.Join(r.Models, ", "))
			if !withModels {
				continue
			}

			totals, err := store.ModelTotals(ctx, p, r.Day)
			if err != nil {
				return err
			}
			models := lo.Keys(totals)
			sort.Slice(models, func(i, j int) bool {
				if totals[models[i]] != totals[models[j]] {
					return totals[models[i]] > totals[models[j]]
				}
				return models[i] < models[j]
			})
			for _, m := range models {
				fmt.Fprintf(w, "\t  %s\t\t\t%s\t\t\t\n", m, formatTokens(totals[m]))
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
