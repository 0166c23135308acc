package costusage

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/providers/shared"
)

// DefaultRefreshMinInterval bounds how often the logs are rescanned when
// reports are requested in a tight loop.
const DefaultRefreshMinInterval = 60 * time.Second

var ErrUnknownProvider = errors.New("costusage: unknown provider")

type Options struct {
	// CodexSessionsRoot overrides $CODEX_HOME/sessions.
	CodexSessionsRoot string
	// ClaudeProjectsRoots overrides $CLAUDE_CONFIG_DIR and the default roots.
	ClaudeProjectsRoots []string
	// CacheRoot overrides the directory holding the per-provider caches.
	CacheRoot string
	// RefreshMinInterval is the minimum time between two scans; zero means
	// DefaultRefreshMinInterval.
	RefreshMinInterval time.Duration
	// ForceRefresh scans regardless of RefreshMinInterval.
	ForceRefresh bool
}

func (o Options) refreshInterval() time.Duration {
	if o.RefreshMinInterval <= 0 {
		return DefaultRefreshMinInterval
	}
	return o.RefreshMinInterval
}

// source binds one provider's log layout and parse regime to the shared
// cache/aggregation machinery.
type source[T packed[T]] struct {
	provider  core.ProviderID
	discover  func(rng core.DayRange, c *Cache[T]) []FileCandidate
	parse     func(path string, offset int64, prev *FileUsage[T], rng core.DayRange) (fileParse[T], error)
	resumable func(fu *FileUsage[T]) bool
}

func codexSource(opts Options) source[CodexCounts] {
	root := opts.CodexSessionsRoot
	if root == "" {
		root = DefaultCodexSessionsRoot()
	}
	root = shared.CanonicalRoot(root)

	return source[CodexCounts]{
		provider: core.ProviderCodex,
		discover: func(rng core.DayRange, _ *Cache[CodexCounts]) []FileCandidate {
			return DiscoverDateBucketed(root, rng, codexSessionFileExt)
		},
		parse: func(path string, offset int64, prev *FileUsage[CodexCounts], rng core.DayRange) (fileParse[CodexCounts], error) {
			var state codexState
			if prev != nil {
				if prev.LastModel != nil {
					state.Model = *prev.LastModel
				}
				state.Totals = prev.LastTotals
			}
			return ParseCodexFile(path, offset, state, rng)
		},
		resumable: func(fu *FileUsage[CodexCounts]) bool {
			return fu.LastModel != nil || fu.LastTotals != nil
		},
	}
}

func claudeSource(opts Options) source[ClaudeCounts] {
	roots := opts.ClaudeProjectsRoots
	if len(roots) == 0 {
		roots = DefaultClaudeProjectsRoots()
	}

	return source[ClaudeCounts]{
		provider: core.ProviderClaude,
		discover: func(_ core.DayRange, c *Cache[ClaudeCounts]) []FileCandidate {
			return DiscoverRecursive(roots, claudeLogFileExt, c.Roots, lo.Keys(c.Files))
		},
		parse: func(path string, offset int64, prev *FileUsage[ClaudeCounts], rng core.DayRange) (fileParse[ClaudeCounts], error) {
			lastKey := ""
			if prev != nil && prev.LastMessageKey != nil {
				lastKey = *prev.LastMessageKey
			}
			return ParseClaudeFile(path, offset, lastKey, rng)
		},
		resumable: func(*FileUsage[ClaudeCounts]) bool { return true },
	}
}

// LoadDailyReport returns per-day token usage and cost for [since, until]
// (local calendar days), scanning the provider's logs only when the cached
// scan is older than the refresh interval or does not cover the range. A
// range reaching past what the cache still holds rebuilds it from scratch.
// Log corruption and missing directories never surface as errors.
func LoadDailyReport(provider core.ProviderID, since, until, now time.Time, opts Options) (core.DailyReport, error) {
	rng := core.NewDayRange(since, until)
	store := NewCacheStore(opts.CacheRoot)

	switch provider {
	case core.ProviderCodex:
		report, _ := load(codexSource(opts), store, rng, now, opts)
		return report, nil
	case core.ProviderClaude:
		report, _ := load(claudeSource(opts), store, rng, now, opts)
		return report, nil
	default:
		return core.DailyReport{Data: []core.DailyReportEntry{}}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// Scanner is LoadDailyReport with a fixed option set and clock.
type Scanner struct {
	Options Options
	Now     func() time.Time
}

func (s *Scanner) DailyReport(provider core.ProviderID, since, until time.Time) (core.DailyReport, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return LoadDailyReport(provider, since, until, now(), s.Options)
}

// VerifyCache checks that the persisted aggregate equals the sum of the
// per-file contributions.
func VerifyCache(provider core.ProviderID, opts Options) (bool, error) {
	store := NewCacheStore(opts.CacheRoot)
	switch provider {
	case core.ProviderCodex:
		c := loadCache[CodexCounts](store, provider)
		return equalDays(rebuildDays(c), c.Days), nil
	case core.ProviderClaude:
		c := loadCache[ClaudeCounts](store, provider)
		return equalDays(rebuildDays(c), c.Days), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

func refreshDue(lastScanUnixMs int64, now time.Time, interval time.Duration) bool {
	if lastScanUnixMs <= 0 {
		return true
	}
	elapsed := now.Sub(time.UnixMilli(lastScanUnixMs))
	return elapsed < 0 || elapsed >= interval
}

func load[T packed[T]](src source[T], store CacheStore, rng core.DayRange, now time.Time, opts Options) (core.DailyReport, *scanStats) {
	cache := loadCache[T](store, src.provider)

	if mayHoldPrunedDays(cache, rng) {
		log.Printf("[costusage] %s cache covers %s..%s, need %s..%s; rescanning",
			src.provider, cache.ScanSinceKey, cache.ScanUntilKey, rng.ScanSinceKey, rng.ScanUntilKey)
		cache = newCache[T]()
	}

	var stats *scanStats
	if !cache.scanRange().Covers(rng) || opts.ForceRefresh || refreshDue(cache.LastScanUnixMs, now, opts.refreshInterval()) {
		s := scan(src, cache, rng, now)
		log.Printf("[costusage] %s scan: %d files (%d unchanged, %d appended, %d reparsed, %d failed), %d removed",
			src.provider, s.files, s.unchanged, s.appended, s.reparsed, s.failed, s.removed)
		if err := saveCache(store, src.provider, cache); err != nil {
			log.Printf("[costusage] %s cache not saved: %v", src.provider, err)
		}
		stats = &s
	}

	return buildReport(cache.Days, rng), stats
}

// mayHoldPrunedDays reports whether an unchanged file could have had days in
// rng pruned from its entry, which an incremental scan cannot recover.
// Moving the start earlier always qualifies. Moving the end later only does
// when the cached end lies before the day of the last scan: otherwise no
// record parsed so far can be dated after it.
func mayHoldPrunedDays[T any](c *Cache[T], rng core.DayRange) bool {
	if len(c.Files) == 0 || c.ScanSinceKey == "" || c.ScanUntilKey == "" {
		return false
	}
	if rng.ScanSinceKey < c.ScanSinceKey {
		return true
	}
	lastScanDay := core.DayKey(time.UnixMilli(c.LastScanUnixMs))
	return rng.ScanUntilKey > c.ScanUntilKey && c.ScanUntilKey < lastScanDay
}

type scanStats struct {
	files, unchanged, appended, reparsed, failed, removed int
}

func scan[T packed[T]](src source[T], cache *Cache[T], rng core.DayRange, now time.Time) scanStats {
	var stats scanStats
	candidates := src.discover(rng, cache)
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		seen[c.Path] = struct{}{}
		stats.files++
		switch updateFile(src, cache, c, rng) {
		case fileUnchanged:
			stats.unchanged++
		case fileAppended:
			stats.appended++
		case fileReparsed:
			stats.reparsed++
		case fileFailed:
			stats.failed++
		}
	}

	for path, fu := range cache.Files {
		if _, ok := seen[path]; ok {
			continue
		}
		applyDays(cache.Days, fu.Days, -1)
		delete(cache.Files, path)
		stats.removed++
	}

	pruneDays(cache.Days, rng.ScanSinceKey, rng.ScanUntilKey)
	for _, fu := range cache.Files {
		pruneDays(fu.Days, rng.ScanSinceKey, rng.ScanUntilKey)
	}

	cache.LastScanUnixMs = now.UnixMilli()
	cache.ScanSinceKey = rng.ScanSinceKey
	cache.ScanUntilKey = rng.ScanUntilKey
	return stats
}

type fileAction int

const (
	fileUnchanged fileAction = iota
	fileAppended
	fileReparsed
	fileFailed
)

// updateFile brings one cache entry up to date with the file on disk. A file
// that only grew is parsed from its stored offset and the delta is added on
// top; any other change retracts the whole previous contribution and
// reparses from byte zero.
func updateFile[T packed[T]](src source[T], cache *Cache[T], c FileCandidate, rng core.DayRange) fileAction {
	prev := cache.Files[c.Path]
	if prev != nil && prev.MtimeUnixMs == c.MtimeUnixMs && prev.Size == c.Size {
		return fileUnchanged
	}

	if prev != nil && c.Size > prev.Size && prev.ParsedBytes > 0 && prev.ParsedBytes <= c.Size && src.resumable(prev) {
		res, err := src.parse(c.Path, prev.ParsedBytes, prev, rng)
		if err == nil {
			applyDays(prev.Days, res.Days, 1)
			applyDays(cache.Days, res.Days, 1)
			prev.record(c, res)
			return fileAppended
		}
		log.Printf("[costusage] %s incremental parse of %s failed, reparsing: %v", src.provider, c.Path, err)
	}

	if prev != nil {
		applyDays(cache.Days, prev.Days, -1)
		delete(cache.Files, c.Path)
	}

	res, err := src.parse(c.Path, 0, nil, rng)
	if err != nil {
		log.Printf("[costusage] %s parse of %s failed: %v", src.provider, c.Path, err)
		return fileFailed
	}
	fu := &FileUsage[T]{Days: res.Days}
	fu.record(c, res)
	cache.Files[c.Path] = fu
	applyDays(cache.Days, res.Days, 1)
	return fileReparsed
}

func (fu *FileUsage[T]) record(c FileCandidate, res fileParse[T]) {
	fu.MtimeUnixMs = c.MtimeUnixMs
	fu.Size = c.Size
	fu.ParsedBytes = res.ParsedBytes
	fu.LastModel = res.LastModel
	fu.LastTotals = res.LastTotals
	fu.LastMessageKey = res.LastMessageKey
}
