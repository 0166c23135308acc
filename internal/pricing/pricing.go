// Package pricing converts token counts into USD using static per-model rate
// tables. Models that are not in a table are reported without a cost.
package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reDateSuffix   = regexp.MustCompile(`[-@](20\d{2})-?(0[1-9]|1[0-2])-?(0[1-9]|[12]\d|3[01])$`)
	reBedrockTag   = regexp.MustCompile(`-v\d+(:\d+)?$`)
	vendorPrefixes = []string{"openai/", "anthropic/", "anthropic.", "models/"}
	perMillion     = decimal.NewFromInt(1_000_000)
)

// codexRates are USD per million tokens.
type codexRates struct {
	Input       float64
	CachedInput float64
	Output      float64
}

type claudeRates struct {
	Input       float64
	CacheRead   float64
	CacheCreate float64
	Output      float64
}

var codexPricing = map[string]codexRates{
	"gpt-5":              {Input: 1.25, CachedInput: 0.125, Output: 10},
	"gpt-5-codex":        {Input: 1.25, CachedInput: 0.125, Output: 10},
	"gpt-5-mini":         {Input: 0.25, CachedInput: 0.025, Output: 2},
	"gpt-5-nano":         {Input: 0.05, CachedInput: 0.005, Output: 0.4},
	"gpt-5.1":            {Input: 1.25, CachedInput: 0.125, Output: 10},
	"gpt-5.1-codex":      {Input: 1.25, CachedInput: 0.125, Output: 10},
	"gpt-5.1-codex-max":  {Input: 1.25, CachedInput: 0.125, Output: 10},
	"gpt-5.1-codex-mini": {Input: 0.25, CachedInput: 0.025, Output: 2},
	"gpt-5.2":            {Input: 1.75, CachedInput: 0.175, Output: 14},
	"gpt-5.2-codex":      {Input: 1.75, CachedInput: 0.175, Output: 14},
	"codex-mini-latest":  {Input: 1.5, CachedInput: 0.375, Output: 6},
}

var claudePricing = map[string]claudeRates{
	"claude-opus-4-5":   {Input: 5, CacheRead: 0.5, CacheCreate: 6.25, Output: 25},
	"claude-opus-4-1":   {Input: 15, CacheRead: 1.5, CacheCreate: 18.75, Output: 75},
	"claude-opus-4":     {Input: 15, CacheRead: 1.5, CacheCreate: 18.75, Output: 75},
	"claude-sonnet-4-5": {Input: 3, CacheRead: 0.3, CacheCreate: 3.75, Output: 15},
	"claude-sonnet-4":   {Input: 3, CacheRead: 0.3, CacheCreate: 3.75, Output: 15},
	"claude-3-7-sonnet": {Input: 3, CacheRead: 0.3, CacheCreate: 3.75, Output: 15},
	"claude-haiku-4-5":  {Input: 1, CacheRead: 0.1, CacheCreate: 1.25, Output: 5},
	"claude-3-5-haiku":  {Input: 0.8, CacheRead: 0.08, CacheCreate: 1, Output: 4},
}

// claudeAliases maps the older "claude-4-opus" word order onto table keys.
var claudeAliases = map[string]string{
	"claude-4-opus":     "claude-opus-4",
	"claude-4-sonnet":   "claude-sonnet-4",
	"claude-4-1-opus":   "claude-opus-4-1",
	"claude-4-5-sonnet": "claude-sonnet-4-5",
	"claude-4-5-haiku":  "claude-haiku-4-5",
	"claude-4-5-opus":   "claude-opus-4-5",
}

// NormalizeModel strips vendor prefixes, release-date suffixes and Bedrock
// version tags so that every spelling of a model collapses onto one key.
func NormalizeModel(raw string) string {
	model := strings.ToLower(strings.TrimSpace(raw))
	for _, prefix := range vendorPrefixes {
		model = strings.TrimPrefix(model, prefix)
	}
	model = reBedrockTag.ReplaceAllString(model, "")
	model = reDateSuffix.ReplaceAllString(model, "")
	if alias, ok := claudeAliases[model]; ok {
		model = alias
	}
	return model
}

// CodexCostUSD prices a Codex bucket. cached is a subset of input and is billed
// at the cached rate instead of the input rate.
func CodexCostUSD(model string, input, cached, output int64) *float64 {
	rates, ok := codexPricing[NormalizeModel(model)]
	if !ok {
		return nil
	}
	cached = min(max(cached, 0), max(input, 0))
	nonCached := max(input-cached, 0)

	total := cost(nonCached, rates.Input).
		Add(cost(cached, rates.CachedInput)).
		Add(cost(output, rates.Output))
	return usd(total)
}

// ClaudeCostUSD prices a Claude bucket. All four categories are disjoint.
func ClaudeCostUSD(model string, input, cacheRead, cacheCreate, output int64) *float64 {
	rates, ok := claudePricing[NormalizeModel(model)]
	if !ok {
		return nil
	}
	total := cost(input, rates.Input).
		Add(cost(cacheRead, rates.CacheRead)).
		Add(cost(cacheCreate, rates.CacheCreate)).
		Add(cost(output, rates.Output))
	return usd(total)
}

// IsPriced reports whether a model has a rate table entry for either provider.
func IsPriced(model string) bool {
	key := NormalizeModel(model)
	_, codex := codexPricing[key]
	_, claude := claudePricing[key]
	return codex || claude
}

func cost(tokens int64, ratePerMillion float64) decimal.Decimal {
	if tokens <= 0 || ratePerMillion <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(tokens).Mul(decimal.NewFromFloat(ratePerMillion)).Div(perMillion)
}

func usd(d decimal.Decimal) *float64 {
	v := d.InexactFloat64()
	return &v
}
