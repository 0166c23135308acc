package costusage

import (
	"sort"

	"github.com/samber/lo"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
)

const topModelBreakdowns = 3

// buildReport renders the cached aggregate for the exact (unpadded) range.
func buildReport[T packed[T]](days DayModels[T], rng core.DayRange) core.DailyReport {
	dayKeys := make([]string, 0, len(days))
	for key := range days {
		if rng.InReport(key) {
			dayKeys = append(dayKeys, key)
		}
	}
	sort.Strings(dayKeys)

	report := core.DailyReport{Data: []core.DailyReportEntry{}}
	var summary core.DailyReportSummary
	var totalCost float64
	costSeen := false

	for _, day := range dayKeys {
		models := days[day]
		names := lo.Keys(models)
		sort.Strings(names)

		entry := core.DailyReportEntry{Date: day, ModelsUsed: names}
		var dayCost float64
		dayCostSeen := false
		breakdowns := make([]core.ModelBreakdown, 0, len(names))

		for _, name := range names {
			counts := models[name]
			t := counts.Totals()
			entry.InputTokens += t.Input
			entry.OutputTokens += t.Output
			entry.CacheReadTokens += t.CacheRead
			entry.CacheCreationTokens += t.CacheCreate

			cost := counts.CostUSD(name)
			if cost != nil {
				dayCost += *cost
				dayCostSeen = true
			}
			breakdowns = append(breakdowns, core.ModelBreakdown{
				ModelName:   name,
				TotalTokens: t.Input + t.Output,
				CostUSD:     cost,
			})
		}
		entry.TotalTokens = entry.InputTokens + entry.OutputTokens

		sortBreakdowns(breakdowns)
		if len(breakdowns) > topModelBreakdowns {
			breakdowns = breakdowns[:topModelBreakdowns]
		}
		entry.ModelBreakdowns = breakdowns

		if dayCostSeen {
			c := dayCost
			entry.CostUSD = &c
			totalCost += dayCost
			costSeen = true
		}

		summary.TotalInputTokens += entry.InputTokens
		summary.TotalOutputTokens += entry.OutputTokens
		summary.TotalTokens += entry.TotalTokens
		report.Data = append(report.Data, entry)
	}

	if len(report.Data) > 0 {
		if costSeen {
			summary.TotalCostUSD = &totalCost
		}
		report.Summary = &summary
	}
	return report
}

// sortBreakdowns orders by cost descending; unpriced models go last, ties
// fall back to tokens then name so the order is stable across calls.
func sortBreakdowns(b []core.ModelBreakdown) {
	sort.SliceStable(b, func(i, j int) bool {
		ci, cj := b[i].CostUSD, b[j].CostUSD
		switch {
		case ci != nil && cj == nil:
			return true
		case ci == nil && cj != nil:
			return false
		case ci != nil && cj != nil && *ci != *cj:
			return *ci > *cj
		}
		if b[i].TotalTokens != b[j].TotalTokens {
			return b[i].TotalTokens > b[j].TotalTokens
		}
		return b[i].ModelName < b[j].ModelName
	})
}
