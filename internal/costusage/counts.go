package costusage

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/zzfadi/CodexBar-sub002/internal/pricing"
)

// packed is implemented by the per-provider token records. The aggregator,
// cache and report builder are written once against it.
type packed[T any] interface {
	Add(other T, sign int) T
	IsZero() bool
	Totals() tokenTotals
	CostUSD(model string) *float64
}

// tokenTotals is the provider-neutral view used by the report builder.
// Input includes every cache category.
type tokenTotals struct {
	Input       int64
	Output      int64
	CacheRead   int64
	CacheCreate int64
}

// DayModels maps day key -> model -> counts.
type DayModels[T any] map[string]map[string]T

// CodexCounts is stored on disk as [input, cachedInput, output].
// CachedInput is a subset of Input.
type CodexCounts struct {
	Input       int64
	CachedInput int64
	Output      int64
}

func (c CodexCounts) Add(o CodexCounts, sign int) CodexCounts {
	s := int64(sign)
	return CodexCounts{
		Input:       max(c.Input+s*o.Input, 0),
		CachedInput: max(c.CachedInput+s*o.CachedInput, 0),
		Output:      max(c.Output+s*o.Output, 0),
	}
}

func (c CodexCounts) IsZero() bool {
	return c.Input == 0 && c.CachedInput == 0 && c.Output == 0
}

func (c CodexCounts) Totals() tokenTotals {
	return tokenTotals{Input: c.Input, Output: c.Output, CacheRead: c.CachedInput}
}

func (c CodexCounts) CostUSD(model string) *float64 {
	return pricing.CodexCostUSD(model, c.Input, c.CachedInput, c.Output)
}

func (c CodexCounts) MarshalJSON() ([]byte, error) {
	return sonic.ConfigStd.Marshal([3]int64{c.Input, c.CachedInput, c.Output})
}

func (c *CodexCounts) UnmarshalJSON(data []byte) error {
	v, err := decodePacked(data, 3)
	if err != nil {
		return err
	}
	*c = CodexCounts{Input: v[0], CachedInput: v[1], Output: v[2]}
	return nil
}

// ClaudeCounts is stored on disk as [input, cacheRead, cacheCreate, output].
// The four categories are disjoint.
type ClaudeCounts struct {
	Input       int64
	CacheRead   int64
	CacheCreate int64
	Output      int64
}

func (c ClaudeCounts) Add(o ClaudeCounts, sign int) ClaudeCounts {
	s := int64(sign)
	return ClaudeCounts{
		Input:       max(c.Input+s*o.Input, 0),
		CacheRead:   max(c.CacheRead+s*o.CacheRead, 0),
		CacheCreate: max(c.CacheCreate+s*o.CacheCreate, 0),
		Output:      max(c.Output+s*o.Output, 0),
	}
}

func (c ClaudeCounts) IsZero() bool {
	return c.Input == 0 && c.CacheRead == 0 && c.CacheCreate == 0 && c.Output == 0
}

func (c ClaudeCounts) Totals() tokenTotals {
	return tokenTotals{
		Input:       c.Input + c.CacheRead + c.CacheCreate,
		Output:      c.Output,
		CacheRead:   c.CacheRead,
		CacheCreate: c.CacheCreate,
	}
}

func (c ClaudeCounts) CostUSD(model string) *float64 {
	return pricing.ClaudeCostUSD(model, c.Input, c.CacheRead, c.CacheCreate, c.Output)
}

func (c ClaudeCounts) MarshalJSON() ([]byte, error) {
	return sonic.ConfigStd.Marshal([4]int64{c.Input, c.CacheRead, c.CacheCreate, c.Output})
}

func (c *ClaudeCounts) UnmarshalJSON(data []byte) error {
	v, err := decodePacked(data, 4)
	if err != nil {
		return err
	}
	*c = ClaudeCounts{Input: v[0], CacheRead: v[1], CacheCreate: v[2], Output: v[3]}
	return nil
}

func decodePacked(data []byte, arity int) ([]int64, error) {
	var v []int64
	if err := sonic.ConfigStd.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode packed counts: %w", err)
	}
	if len(v) != arity {
		return nil, fmt.Errorf("packed counts: got %d values, want %d", len(v), arity)
	}
	for _, n := range v {
		if n < 0 {
			return nil, fmt.Errorf("packed counts: negative value %d", n)
		}
	}
	return v, nil
}
