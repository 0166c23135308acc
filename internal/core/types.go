package core

import "strings"

// ProviderID names an upstream tool whose local logs can be scanned.
type ProviderID string

const (
	ProviderCodex  ProviderID = "codex"
	ProviderClaude ProviderID = "claude"
)

var Providers = []ProviderID{ProviderCodex, ProviderClaude}

func ParseProviderID(s string) (ProviderID, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "codex", "openai":
		return ProviderCodex, true
	case "claude", "claude_code", "claude-code", "anthropic":
		return ProviderClaude, true
	}
	return "", false
}

// ModelBreakdown is one of the top models of a day, ordered by cost.
type ModelBreakdown struct {
	ModelName   string   `json:"modelName"`
	TotalTokens int64    `json:"totalTokens"`
	CostUSD     *float64 `json:"costUSD,omitempty"`
}

type DailyReportEntry struct {
	Date                string           `json:"date"` // "2025-01-15"
	InputTokens         int64            `json:"inputTokens"`
	OutputTokens        int64            `json:"outputTokens"`
	CacheReadTokens     int64            `json:"cacheReadTokens,omitempty"`
	CacheCreationTokens int64            `json:"cacheCreationTokens,omitempty"`
	TotalTokens         int64            `json:"totalTokens"`
	CostUSD             *float64         `json:"costUSD,omitempty"` // nil when no model of the day is priced
	ModelsUsed          []string         `json:"modelsUsed"`
	ModelBreakdowns     []ModelBreakdown `json:"modelBreakdowns"`
}

type DailyReportSummary struct {
	TotalInputTokens  int64    `json:"totalInputTokens"`
	TotalOutputTokens int64    `json:"totalOutputTokens"`
	TotalTokens       int64    `json:"totalTokens"`
	TotalCostUSD      *float64 `json:"totalCostUSD,omitempty"`
}

type DailyReport struct {
	Data    []DailyReportEntry  `json:"daily"`
	Summary *DailyReportSummary `json:"totals,omitempty"`
}

// Entry returns the entry for a day key, if the report has one.
func (r DailyReport) Entry(date string) (DailyReportEntry, bool) {
	for _, e := range r.Data {
		if e.Date == date {
			return e, true
		}
	}
	return DailyReportEntry{}, false
}
