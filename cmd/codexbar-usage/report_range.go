package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
)

// rangeFlags selects the reporting window: an explicit --since/--until, a
// named --window, or the trailing --days.
type rangeFlags struct {
	since  string
	until  string
	window string
	days   int
}

func (f *rangeFlags) register(cmd *cobra.Command, defaultDays int) {
	cmd.Flags().StringVar(&f.since, "since", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.until, "until", "", "last day (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&f.window, "window", "", "trailing window such as 7d, 2w or today")
	cmd.Flags().IntVar(&f.days, "days", defaultDays, "trailing number of days ending today")
}

func (f rangeFlags) resolve(now time.Time) (time.Time, time.Time, error) {
	if f.since != "" || f.until != "" {
		until := now
		if f.until != "" {
			t, err := core.ParseDayKey(f.until)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid --until %q: %w", f.until, err)
			}
			until = t
		}
		if f.since == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--until requires --since")
		}
		since, err := core.ParseDayKey(f.since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since %q: %w", f.since, err)
		}
		if core.DayKey(since) > core.DayKey(until) {
			return time.Time{}, time.Time{}, fmt.Errorf("--since %s is after --until %s", core.DayKey(since), core.DayKey(until))
		}
		return since, until, nil
	}

	if f.window != "" {
		tw, err := core.ParseTimeWindow(f.window)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		since, until := tw.Bounds(now)
		return since, until, nil
	}

	if f.days <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("--days must be positive, got %d", f.days)
	}
	return now.AddDate(0, 0, -(f.days - 1)), now, nil
}

// parseProviders accepts a provider id, an alias, or "all".
func parseProviders(s string) ([]core.ProviderID, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return core.Providers, nil
	}
	var out []core.ProviderID
	for _, part := range strings.Split(s, ",") {
		id, ok := core.ParseProviderID(part)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q (want codex, claude or all)", strings.TrimSpace(part))
		}
		out = append(out, id)
	}
	return lo.Uniq(out), nil
}
