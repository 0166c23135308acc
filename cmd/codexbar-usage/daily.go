package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zzfadi/CodexBar-sub002/internal/config"
	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/costusage"
)

func newDailyCommand(cfg *config.Config) *cobra.Command {
	var (
		rf       rangeFlags
		provider string
		asJSON   bool
		verify   bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Print per-day token usage and cost",
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

			opts := cfg.ScanOptions()
			opts.ForceRefresh = force
			reports, err := loadReports(cmd.Context(), providers, since, until, now, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, providers, reports); err != nil {
					return err
				}
			} else {
				for _, p := range providers {
					writeReportTable(out, p, since, until, reports[p])
				}
			}

			if verify {
				return verifyCaches(out, providers, opts)
			}
			return nil
		},
	}
	rf.register(cmd, cfg.DefaultDays)
	cmd.Flags().StringVarP(&provider, "provider", "p", "all", "codex, claude or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&verify, "verify", false, "check the cache aggregate against per-file totals")
	cmd.Flags().BoolVar(&force, "force", false, "rescan even if the last scan is recent")
	return cmd
}

// loadReports scans providers concurrently. Each provider owns its cache
// file, so the scans share nothing.
func loadReports(ctx context.Context, providers []core.ProviderID, since, until, now time.Time, opts costusage.Options) (map[core.ProviderID]core.DailyReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]core.DailyReport, len(providers))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := costusage.LoadDailyReport(p, since, until, now, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			results[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[core.ProviderID]core.DailyReport, len(providers))
	for i, p := range providers {
		out[p] = results[i]
	}
	return out, nil
}

func writeJSON(w io.Writer, providers []core.ProviderID, reports map[core.ProviderID]core.DailyReport) error {
	var v any
	if len(providers) == 1 {
		v = reports[providers[0]]
	} else {
		byName := make(map[string]core.DailyReport, len(reports))
		for p, r := range reports {
			byName[string(p)] = r
		}
		v = byName
	}
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func verifyCaches(w io.Writer, providers []core.ProviderID, opts costusage.Options) error {
	failed := 0
	for _, p := range providers {
		ok, err := costusage.VerifyCache(p, opts)
		if err != nil {
			return err
		}
		status := "consistent"
		if !ok {
			status = "INCONSISTENT"
			failed++
		}
		fmt.Fprintf(w, "%s cache: %s\n", p, status)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "remove the cache files under %s to rebuild\n", costusage.NewCacheStore(opts.CacheRoot).Dir)
		return fmt.Errorf("%d provider cache(s) inconsistent", failed)
	}
	return nil
}
