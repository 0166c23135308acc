package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/pricing"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	totalStyle  = numberStyle.Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var providerLabels = map[core.ProviderID]string{
	core.ProviderCodex:  "Codex",
	core.ProviderClaude: "Claude Code",
}

func writeReportTable(w io.Writer, provider core.ProviderID, since, until time.Time, report core.DailyReport) {
	title := fmt.Sprintf("%s  %s .. %s", providerLabels[provider], core.DayKey(since), core.DayKey(until))
	fmt.Fprintln(w, headerStyle.Render(title))

	if len(report.Data) == 0 {
		fmt.Fprintln(w, cellStyle.Render("no usage recorded"))
		fmt.Fprintln(w)
		return
	}

	rows := lo.Map(report.Data, func(e core.DailyReportEntry, _ int) []string {
		return []string{
			e.Date,
			formatTokens(e.InputTokens),
			formatTokens(e.OutputTokens),
			formatTokens(e.CacheReadTokens),
			formatTokens(e.CacheCreationTokens),
			formatTokens(e.TotalTokens),
			formatCost(e.CostUSD),
			topModels(e.ModelBreakdowns),
		}
	})
	if s := report.Summary; s != nil {
		rows = append(rows, []string{
			"Total",
			formatTokens(s.TotalInputTokens),
			formatTokens(s.TotalOutputTokens),
			"", "",
			formatTokens(s.TotalTokens),
			formatCost(s.TotalCostUSD),
			"",
		})
	}
	lastRow := len(rows) - 1
	hasTotal := report.Summary != nil

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Date", "Input", "Output", "Cache read", "Cache write", "Total", "Cost", "Top models").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 || col == 7:
				return cellStyle
			case hasTotal && row == lastRow:
				return totalStyle
			default:
				return numberStyle
			}
		})
	fmt.Fprintln(w, t.Render())
	if models := unpricedModels(report); len(models) > 0 {
		fmt.Fprintln(w, cellStyle.Render("no price for: "+strings.Join(models, ", ")))
	}
	fmt.Fprintln(w)
}

// unpricedModels lists breakdown models that have no rate table entry and so
// are left out of every cost figure.
func unpricedModels(report core.DailyReport) []string {
	names := lo.FlatMap(report.Data, func(e core.DailyReportEntry, _ int) []string {
		return lo.Map(e.ModelBreakdowns, func(m core.ModelBreakdown, _ int) string { return m.ModelName })
	})
	return lo.Uniq(lo.Filter(names, func(name string, _ int) bool { return !pricing.IsPriced(name) }))
}

func topModels(b []core.ModelBreakdown) string {
	return strings.Join(lo.Map(b, func(m core.ModelBreakdown, _ int) string {
		if m.CostUSD == nil {
			return m.ModelName
		}
		return fmt.Sprintf("%s %s", m.ModelName, formatCost(m.CostUSD))
	}), ", ")
}

// formatTokens groups digits by thousands.
func formatTokens(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func formatCost(c *float64) string {
	if c == nil {
		return "n/a"
	}
	if *c > 0 && *c < 0.01 {
		return "<$0.01"
	}
	return fmt.Sprintf("$%.2f", *c)
}
