package costusage

import "github.com/zzfadi/CodexBar-sub002/internal/core"

// applyDays adds (sign=+1) or subtracts (sign=-1) delta into dst. Components
// clamp at zero; all-zero models and empty days are removed.
func applyDays[T packed[T]](dst, delta DayModels[T], sign int) {
	for day, models := range delta {
		dayModels := dst[day]
		if dayModels == nil {
			if sign < 0 {
				continue
			}
			dayModels = make(map[string]T, len(models))
			dst[day] = dayModels
		}
		for model, counts := range models {
			merged := dayModels[model].Add(counts, sign)
			if merged.IsZero() {
				delete(dayModels, model)
			} else {
				dayModels[model] = merged
			}
		}
		if len(dayModels) == 0 {
			delete(dst, day)
		}
	}
}

func addCounts[T packed[T]](days DayModels[T], day, model string, counts T) {
	if counts.IsZero() {
		return
	}
	dayModels := days[day]
	if dayModels == nil {
		dayModels = make(map[string]T)
		days[day] = dayModels
	}
	dayModels[model] = dayModels[model].Add(counts, 1)
}

// pruneDays drops every day outside [lo, hi].
func pruneDays[T any](days DayModels[T], lo, hi string) {
	for key := range days {
		if !core.IsInRange(key, lo, hi) {
			delete(days, key)
		}
	}
}

// rebuildDays recomputes the global aggregate from the per-file entries.
func rebuildDays[T packed[T]](c *Cache[T]) DayModels[T] {
	out := make(DayModels[T])
	for _, fu := range c.Files {
		applyDays(out, fu.Days, 1)
	}
	return out
}

func equalDays[T comparable](a, b DayModels[T]) bool {
	if len(a) != len(b) {
		return false
	}
	for day, am := range a {
		bm, ok := b[day]
		if !ok || len(am) != len(bm) {
			return false
		}
		for model, av := range am {
			if bv, ok := bm[model]; !ok || av != bv {
				return false
			}
		}
	}
	return true
}
