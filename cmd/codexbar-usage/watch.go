package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/zzfadi/CodexBar-sub002/internal/config"
	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/costusage"
)

const watchPollInterval = 250 * time.Millisecond

func newWatchCommand(cfg *config.Config) *cobra.Command {
	var (
		rf       rangeFlags
		provider string
		minGap   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-print the daily report whenever the logs change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			providers, err := parseProviders(provider)
			if err != nil {
				return err
			}
			if _, _, err := rf.resolve(time.Now()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scanner := &costusage.Scanner{Options: cfg.ScanOptions(), Now: time.Now}
			scanner.Options.ForceRefresh = true
			return runWatch(ctx, cmd.OutOrStdout(), providers, rf, scanner, minGap)
		},
	}
	rf.register(cmd, cfg.DefaultDays)
	cmd.Flags().StringVarP(&provider, "provider", "p", "all", "codex, claude or all")
	cmd.Flags().DurationVar(&minGap, "min-gap", 2*time.Second, "minimum time between two refreshes")
	return cmd
}

// runWatch refreshes on a single goroutine, so at most one scan per provider
// is in flight. Bursts of write events collapse into one refresh per minGap.
func runWatch(ctx context.Context, w io.Writer, providers []core.ProviderID, rf rangeFlags, scanner *costusage.Scanner, minGap time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	limiter := rate.NewLimiter(rate.Every(minGap), 1)
	dirty := true
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		if dirty && limiter.Allow() {
			dirty = false
			now := scanner.Now()
			for _, dir := range watchDirs(providers, scanner.Options, now) {
				if err := watcher.Add(dir); err != nil {
					log.Printf("[watch] cannot watch %s: %v", dir, err)
				}
			}
			if err := refreshOnce(ctx, w, providers, rf, scanner, now); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if relevantEvent(ev) {
				dirty = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watch] watcher error: %v", err)
		case <-ticker.C:
		}
	}
}

func refreshOnce(ctx context.Context, w io.Writer, providers []core.ProviderID, rf rangeFlags, scanner *costusage.Scanner, now time.Time) error {
	since, until, err := rf.resolve(now)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "updated %s\n", now.Format("15:04:05"))
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return nil
		}
		report, err := scanner.DailyReport(p, since, until)
		if err != nil {
			return err
		}
		writeReportTable(w, p, since, until, report)
		if e, ok := report.Entry(core.DayKey(now)); ok {
			fmt.Fprintf(w, "%s today: %s tokens, %s\n\n", providerLabels[p], formatTokens(e.TotalTokens), formatCost(e.CostUSD))
		}
	}
	return nil
}

// relevantEvent is true for writes to session logs and for new directories,
// which may be a new day bucket or project.
func relevantEvent(ev fsnotify.Event) bool {
	if strings.HasSuffix(strings.ToLower(ev.Name), ".jsonl") {
		return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	}
	if ev.Has(fsnotify.Create) {
		info, err := os.Stat(ev.Name)
		return err == nil && info.IsDir()
	}
	return false
}

// watchDirs lists the directories whose entries change when sessions are
// written: today's and yesterday's Codex day buckets (plus their parents so
// a new bucket is noticed) and every Claude project directory.
func watchDirs(providers []core.ProviderID, opts costusage.Options, now time.Time) []string {
	var dirs []string
	for _, p := range providers {
		switch p {
		case core.ProviderCodex:
			root := opts.CodexSessionsRoot
			if root == "" {
				root = costusage.DefaultCodexSessionsRoot()
			}
			if root == "" {
				continue
			}
			dirs = append(dirs, root)
			for _, day := range []time.Time{now.AddDate(0, 0, -1), now} {
				year := filepath.Join(root, day.Format("2006"))
				month := filepath.Join(year, day.Format("01"))
				dirs = append(dirs, year, month, filepath.Join(month, day.Format("02")))
			}
		case core.ProviderClaude:
			roots := opts.ClaudeProjectsRoots
			if len(roots) == 0 {
				roots = costusage.DefaultClaudeProjectsRoots()
			}
			for _, root := range roots {
				dirs = append(dirs, root)
				entries, err := os.ReadDir(root)
				if err != nil {
					continue
				}
				for _, e := range entries {
					if e.IsDir() {
						dirs = append(dirs, filepath.Join(root, e.Name()))
					}
				}
			}
		}
	}
	return existingDirs(dirs)
}

func existingDirs(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, d := range dirs {
		if seen[d] {
			continue
		}
		seen[d] = true
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			out = append(out, d)
		}
	}
	return out
}
