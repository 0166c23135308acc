package costusage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/pricing"
)

func TestLoadDailyReport_CodexCumulativeTotals(t *testing.T) {
	opts := testOptions(t)
	writeCodexSession(t, opts.CodexSessionsRoot, 15, "rollout-a.jsonl", jsonl(
		codexTurnLine(ts(15, 9), "model-a"),
		codexTotalLine(ts(15, 10), 100, 20, 10),
		codexTotalLine(ts(15, 11), 250, 40, 30),
		codexTotalLine(ts(15, 12), 250, 40, 55),
	))

	report, err := LoadDailyReport(core.ProviderCodex, localTime(15, 0), localTime(15, 0), localTime(16, 8), opts)
	if err != nil {
		t.Fatalf("LoadDailyReport: %v", err)
	}
	if len(report.Data) != 1 {
		t.Fatalf("len(Data) = %d, want 1: %+v", len(report.Data), report.Data)
	}
	e := report.Data[0]
	if e.Date != "2025-01-15" {
		t.Fatalf("Date = %q, want 2025-01-15", e.Date)
	}
	if e.InputTokens != 250 || e.CacheReadTokens != 40 || e.OutputTokens != 55 || e.TotalTokens != 305 {
		t.Fatalf("entry = %+v, want input 250 cached 40 output 55 total 305", e)
	}
	if !reflect.DeepEqual(e.ModelsUsed, []string{"model-a"}) {
		t.Fatalf("ModelsUsed = %v, want [model-a]", e.ModelsUsed)
	}
	if e.CostUSD != nil {
		t.Fatalf("CostUSD = %v, want nil for unpriced model", *e.CostUSD)
	}
	if len(e.ModelBreakdowns) != 1 || e.ModelBreakdowns[0].TotalTokens != 305 {
		t.Fatalf("ModelBreakdowns = %+v", e.ModelBreakdowns)
	}
	if report.Summary == nil || report.Summary.TotalTokens != 305 || report.Summary.TotalCostUSD != nil {
		t.Fatalf("Summary = %+v", report.Summary)
	}
}

func TestLoadDailyReport_CodexFallbackModelIsPriced(t *testing.T) {
	opts := testOptions(t)
	writeCodexSession(t, opts.CodexSessionsRoot, 15, "rollout.jsonl", jsonl(
		codexLastLine(ts(15, 10), 1000, 200, 100),
	))

	report, err := LoadDailyReport(core.ProviderCodex, localTime(15, 0), localTime(15, 0), localTime(16, 8), opts)
	if err != nil {
		t.Fatalf("LoadDailyReport: %v", err)
	}
	e, ok := report.Entry("2025-01-15")
	if !ok {
		t.Fatalf("no entry for 2025-01-15: %+v", report.Data)
	}
	if !reflect.DeepEqual(e.ModelsUsed, []string{codexFallbackModel}) {
		t.Fatalf("ModelsUsed = %v, want [%s]", e.ModelsUsed, codexFallbackModel)
	}
	want := pricing.CodexCostUSD(codexFallbackModel, 1000, 200, 100)
	if e.CostUSD == nil || want == nil || *e.CostUSD != *want {
		t.Fatalf("CostUSD = %v, want %v", e.CostUSD, want)
	}
}

func TestLoadDailyReport_IdempotentWithinRefreshInterval(t *testing.T) {
	opts := testOptions(t)
	path := writeCodexSession(t, opts.CodexSessionsRoot, 15, "rollout.jsonl", jsonl(
		codexTurnLine(ts(15, 9), "gpt-5"),
		codexTotalLine(ts(15, 10), 500, 100, 50),
	))
	now := localTime(16, 8)
	since, until := localTime(14, 0), localTime(16, 0)

	first, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if len(first.Data) != 1 {
		t.Fatalf("first report = %+v", first.Data)
	}

	// Within the interval the logs are not touched at all, so a deleted file
	// still shows up.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := LoadDailyReport(core.ProviderCodex, since, until, now.Add(30*time.Second), opts)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("reports differ within refresh interval:\n%s\n%s", a, b)
	}

	third, err := LoadDailyReport(core.ProviderCodex, since, until, now.Add(DefaultRefreshMinInterval), opts)
	if err != nil {
		t.Fatalf("third: %v", err)
	}
	if len(third.Data) != 0 || third.Summary != nil {
		t.Fatalf("after refresh report = %+v, want empty", third)
	}
}

func TestLoadDailyReport_ClockMovedBackwardsRescans(t *testing.T) {
	opts := testOptions(t)
	now := localTime(16, 8)
	since, until := localTime(15, 0), localTime(15, 0)

	if _, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts); err != nil {
		t.Fatal(err)
	}
	writeCodexSession(t, opts.CodexSessionsRoot, 15, "late.jsonl", jsonl(codexLastLine(ts(15, 10), 10, 0, 1)))

	report, err := LoadDailyReport(core.ProviderCodex, since, until, now.Add(-time.Minute), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Data) != 1 {
		t.Fatalf("report = %+v, want the new session", report.Data)
	}
}

func TestLoadDailyReport_AppendMatchesFullParse(t *testing.T) {
	opts := testOptions(t)
	opts.ForceRefresh = true
	path := writeCodexSession(t, opts.CodexSessionsRoot, 15, "rollout.jsonl", jsonl(
		codexTurnLine(ts(15, 9), "gpt-5-codex"),
		codexTotalLine(ts(15, 10), 100, 20, 10),
	))
	since, until, now := localTime(15, 0), localTime(15, 0), localTime(16, 8)

	if _, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts); err != nil {
		t.Fatal(err)
	}
	appendFile(t, path, jsonl(
		codexTotalLine(ts(15, 11), 300, 60, 40),
		codexTurnLine(ts(15, 12), "gpt-5-mini"),
		codexTotalLine(ts(15, 13), 400, 60, 70),
	))
	incremental, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts)
	if err != nil {
		t.Fatal(err)
	}

	cache := loadCache[CodexCounts](NewCacheStore(opts.CacheRoot), core.ProviderCodex)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	fu := cache.Files[path]
	if fu == nil || fu.ParsedBytes != info.Size() {
		t.Fatalf("file entry = %+v, want ParsedBytes %d", fu, info.Size())
	}
	if fu.LastModel == nil || *fu.LastModel != "gpt-5-mini" {
		t.Fatalf("LastModel = %v, want gpt-5-mini", fu.LastModel)
	}

	fresh := opts
	fresh.CacheRoot = t.TempDir()
	full, err := LoadDailyReport(core.ProviderCodex, since, until, now, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(incremental, full) {
		t.Fatalf("incremental report %+v != full report %+v", incremental, full)
	}
	ok, err := VerifyCache(core.ProviderCodex, opts)
	if err != nil || !ok {
		t.Fatalf("VerifyCache = %v, %v", ok, err)
	}
}

func TestLoadDailyReport_RewrittenFileIsRetractedAndReparsed(t *testing.T) {
	opts := testOptions(t)
	opts.ForceRefresh = true
	path := writeCodexSession(t, opts.CodexSessionsRoot, 15, "rollout.jsonl", jsonl(
		codexTurnLine(ts(15, 9), "model-a"),
		codexTotalLine(ts(15, 10), 1000, 0, 100),
	))
	since, until, now := localTime(15, 0), localTime(15, 0), localTime(16, 8)
	if _, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts); err != nil {
		t.Fatal(err)
	}

	// Shorter content: no longer a pure append.
	writeFile(t, path, jsonl(codexTurnLine(ts(15, 9), "model-a"), codexTotalLine(ts(15, 10), 7, 0, 3)))
	report, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := report.Entry("2025-01-15")
	if !ok || e.InputTokens != 7 || e.OutputTokens != 3 {
		t.Fatalf("entry = %+v, want input 7 output 3", e)
	}
}

func TestLoadDailyReport_DeletedFileIsFullyRetracted(t *testing.T) {
	opts := testOptions(t)
	opts.ForceRefresh = true
	keep := writeCodexSession(t, opts.CodexSessionsRoot, 15, "keep.jsonl", jsonl(
		codexTurnLine(ts(15, 9), "model-a"),
		codexTotalLine(ts(15, 10), 10, 0, 1),
	))
	gone := writeCodexSession(t, opts.CodexSessionsRoot, 15, "gone.jsonl", jsonl(
		codexTurnLine(ts(15, 9), "model-a"),
		codexTotalLine(ts(15, 10), 100, 0, 10),
		codexTurnLine(ts(15, 11), "model-b"),
		codexTotalLine(ts(15, 12), 150, 0, 20),
	))
	goneLater := writeCodexSession(t, opts.CodexSessionsRoot, 16, "gone.jsonl", jsonl(
		codexTotalLine(ts(16, 10), 5, 0, 5),
	))
	since, until, now := localTime(15, 0), localTime(16, 0), localTime(16, 20)

	if _, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{gone, goneLater} {
		if err := os.Remove(p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := LoadDailyReport(core.ProviderCodex, since, until, now, opts); err != nil {
		t.Fatal(err)
	}

	cache := loadCache[CodexCounts](NewCacheStore(opts.CacheRoot), core.ProviderCodex)
	want := DayModels[CodexCounts]{"2025-01-15": {"model-a": {Input: 10, Output: 1}}}
	if !equalDays(cache.Days, want) {
		t.Fatalf("Days = %+v, want %+v", cache.Days, want)
	}
	if len(cache.Files) != 1 || cache.Files[keep] == nil {
		t.Fatalf("Files = %v, want only %s", cache.Files, keep)
	}
	if !equalDays(rebuildDays(cache), cache.Days) {
		t.Fatal("global days diverged from per-file days")
	}
}

func TestLoadDailyReport_RangeWideningRescans(t *testing.T) {
	opts := testOptions(t)
	writeCodexSession(t, opts.CodexSessionsRoot, 5, "early.jsonl", jsonl(codexLastLine(ts(5, 10), 10, 0, 1)))
	writeCodexSession(t, opts.CodexSessionsRoot, 20, "late.jsonl", jsonl(codexLastLine(ts(20, 10), 20, 0, 2)))
	now := localTime(20, 12)

	narrow, err := LoadDailyReport(core.ProviderCodex, localTime(20, 0), localTime(20, 0), now, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(narrow.Data) != 1 {
		t.Fatalf("narrow = %+v", narrow.Data)
	}

	wide, err := LoadDailyReport(core.ProviderCodex, localTime(1, 0), localTime(20, 0), now.Add(time.Second), opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := wide.Entry("2025-01-05"); !ok {
		t.Fatalf("wide report misses 2025-01-05: %+v", wide.Data)
	}
}

func TestLoad_TrailingWindowKeepsUnchangedFiles(t *testing.T) {
	opts := testOptions(t)
	src := claudeSource(opts)
	store := NewCacheStore(opts.CacheRoot)
	writeFile(t, filepath.Join(opts.ClaudeProjectsRoots[0], "proj", "session.jsonl"), jsonl(
		claudeLine(ts(10, 10), "msg_1", "req_1", "claude-sonnet-4-5", 10, 0, 0, 1),
	))

	if _, stats := load(src, store, core.NewDayRange(localTime(9, 0), localTime(15, 0)), localTime(15, 12), opts); stats == nil || stats.reparsed != 1 {
		t.Fatalf("first scan stats = %+v, want 1 reparsed", stats)
	}

	report, stats := load(src, store, core.NewDayRange(localTime(10, 0), localTime(16, 0)), localTime(16, 12), opts)
	if stats == nil {
		t.Fatal("expected a scan for the moved window")
	}
	if stats.files != 1 || stats.unchanged != 1 || stats.reparsed != 0 || stats.appended != 0 {
		t.Fatalf("stats = %+v, want 1 unchanged, 0 reparsed", *stats)
	}
	entry, ok := report.Entry("2025-01-10")
	if !ok || entry.InputTokens != 10 || entry.OutputTokens != 1 {
		t.Fatalf("2025-01-10 = %+v (found %v)", entry, ok)
	}

	cache := loadCache[ClaudeCounts](store, core.ProviderClaude)
	if cache.ScanSinceKey != "2025-01-09" || cache.ScanUntilKey != "2025-01-17" {
		t.Fatalf("scan keys = %s..%s, want 2025-01-09..2025-01-17", cache.ScanSinceKey, cache.ScanUntilKey)
	}
}

func TestLoadDailyReport_ReopeningPrunedEndRescans(t *testing.T) {
	opts := testOptions(t)
	opts.ForceRefresh = true
	writeFile(t, filepath.Join(opts.ClaudeProjectsRoots[0], "proj", "session.jsonl"), jsonl(
		claudeLine(ts(5, 10), "msg_1", "req_1", "claude-sonnet-4-5", 10, 0, 0, 1),
		claudeLine(ts(20, 10), "msg_2", "req_2", "claude-sonnet-4-5", 20, 0, 0, 2),
	))
	now := localTime(25, 12)

	if _, err := LoadDailyReport(core.ProviderClaude, localTime(4, 0), localTime(10, 0), now, opts); err != nil {
		t.Fatal(err)
	}
	report, err := LoadDailyReport(core.ProviderClaude, localTime(4, 0), localTime(25, 0), now.Add(time.Minute), opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := report.Entry("2025-01-20"); !ok {
		t.Fatalf("report misses 2025-01-20 after the end moved past it: %+v", report.Data)
	}
	if _, ok := report.Entry("2025-01-05"); !ok {
		t.Fatalf("report misses 2025-01-05: %+v", report.Data)
	}
}

func TestMayHoldPrunedDays(t *testing.T) {
	cached := func(since, until string, lastScan time.Time) *Cache[ClaudeCounts] {
		c := newCache[ClaudeCounts]()
		c.Files["a.jsonl"] = &FileUsage[ClaudeCounts]{}
		c.ScanSinceKey, c.ScanUntilKey = since, until
		c.LastScanUnixMs = lastScan.UnixMilli()
		return c
	}
	rng := func(since, until int) core.DayRange {
		return core.NewDayRange(localTime(since, 0), localTime(until, 0))
	}

	tests := []struct {
		name  string
		cache *Cache[ClaudeCounts]
		rng   core.DayRange
		want  bool
	}{
		{"empty cache", newCache[ClaudeCounts](), rng(1, 20), false},
		{"same window", cached("2025-01-08", "2025-01-16", localTime(15, 12)), rng(9, 15), false},
		{"trailing window moved forward", cached("2025-01-08", "2025-01-16", localTime(15, 12)), rng(10, 16), false},
		{"narrowed", cached("2025-01-08", "2025-01-16", localTime(15, 12)), rng(11, 13), false},
		{"start moved earlier", cached("2025-01-08", "2025-01-16", localTime(15, 12)), rng(5, 15), true},
		{"end reopened after pruning", cached("2025-01-03", "2025-01-11", localTime(25, 12)), rng(4, 25), true},
	}
	for _, tt := range tests {
		if got := mayHoldPrunedDays(tt.cache, tt.rng); got != tt.want {
			t.Errorf("%s: mayHoldPrunedDays = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLoadDailyReport_PrunesOutsideScanWindow(t *testing.T) {
	opts := testOptions(t)
	opts.ForceRefresh = true
	root := opts.ClaudeProjectsRoots[0]
	writeFile(t, filepath.Join(root, "proj", "session.jsonl"), jsonl(
		claudeLine(ts(5, 10), "msg_1", "req_1", "claude-sonnet-4-5", 10, 0, 0, 1),
		claudeLine(ts(20, 10), "msg_2", "req_2", "claude-sonnet-4-5", 20, 0, 0, 2),
	))

	if _, err := LoadDailyReport(core.ProviderClaude, localTime(1, 0), localTime(25, 0), localTime(25, 12), opts); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDailyReport(core.ProviderClaude, localTime(19, 0), localTime(21, 0), localTime(25, 12), opts); err != nil {
		t.Fatal(err)
	}

	cache := loadCache[ClaudeCounts](NewCacheStore(opts.CacheRoot), core.ProviderClaude)
	lo, hi := cache.ScanSinceKey, cache.ScanUntilKey
	if lo != "2025-01-18" || hi != "2025-01-22" {
		t.Fatalf("scan keys = %s..%s, want 2025-01-18..2025-01-22", lo, hi)
	}
	for day := range cache.Days {
		if !core.IsInRange(day, lo, hi) {
			t.Fatalf("global day %s outside %s..%s", day, lo, hi)
		}
	}
	for path, fu := range cache.Files {
		for day := range fu.Days {
			if !core.IsInRange(day, lo, hi) {
				t.Fatalf("%s day %s outside %s..%s", path, day, lo, hi)
			}
		}
	}
	if !equalDays(rebuildDays(cache), cache.Days) {
		t.Fatal("global days diverged from per-file days")
	}
}

func TestLoadDailyReport_Claude(t *testing.T) {
	opts := testOptions(t)
	root := opts.ClaudeProjectsRoots[0]
	writeFile(t, filepath.Join(root, "-home-me-proj", "a.jsonl"), jsonl(
		`{"type":"user","timestamp":"`+ts(15, 9)+`","message":{"role":"user","content":"hi"}}`,
		claudeLine(ts(15, 10), "msg_1", "req_1", "claude-sonnet-4-5-20250929", 1000, 2000, 500, 100),
		claudeLine(ts(15, 10), "msg_1", "req_1", "claude-sonnet-4-5-20250929", 1000, 2000, 500, 100),
		claudeLine(ts(15, 11), "msg_2", "req_2", "claude-sonnet-4-5-20250929", 0, 0, 0, 200),
	))
	writeFile(t, filepath.Join(root, "other", "nested", "b.jsonl"), jsonl(
		claudeLine(ts(15, 12), "msg_3", "req_3", "", 5, 0, 0, 5),
	))

	report, err := LoadDailyReport(core.ProviderClaude, localTime(15, 0), localTime(15, 0), localTime(16, 8), opts)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := report.Entry("2025-01-15")
	if !ok {
		t.Fatalf("no entry: %+v", report.Data)
	}
	if e.InputTokens != 1000+2000+500+5 || e.CacheReadTokens != 2000 || e.CacheCreationTokens != 500 {
		t.Fatalf("input/cache = %d/%d/%d", e.InputTokens, e.CacheReadTokens, e.CacheCreationTokens)
	}
	if e.OutputTokens != 305 || e.TotalTokens != e.InputTokens+e.OutputTokens {
		t.Fatalf("output/total = %d/%d", e.OutputTokens, e.TotalTokens)
	}
	if !reflect.DeepEqual(e.ModelsUsed, []string{"claude-sonnet-4-5", claudeUnknownModel}) {
		t.Fatalf("ModelsUsed = %v", e.ModelsUsed)
	}
	want := pricing.ClaudeCostUSD("claude-sonnet-4-5", 1000, 2000, 500, 300)
	if e.CostUSD == nil || want == nil || *e.CostUSD != *want {
		t.Fatalf("CostUSD = %v, want %v", e.CostUSD, want)
	}
	last := e.ModelBreakdowns[len(e.ModelBreakdowns)-1]
	if last.ModelName != claudeUnknownModel || last.CostUSD != nil {
		t.Fatalf("unpriced breakdown should sort last: %+v", e.ModelBreakdowns)
	}
}

func TestLoadDailyReport_ClaudeFindsSessionsInNewNestedDirs(t *testing.T) {
	opts := testOptions(t)
	opts.ForceRefresh = true
	root := opts.ClaudeProjectsRoots[0]
	writeFile(t, filepath.Join(root, "proj", "a.jsonl"), jsonl(
		claudeLine(ts(15, 10), "msg_1", "req_1", "claude-haiku-4-5", 10, 0, 0, 1),
	))
	since, until, now := localTime(15, 0), localTime(15, 0), localTime(16, 8)
	if _, err := LoadDailyReport(core.ProviderClaude, since, until, now, opts); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "proj", "sub", "b.jsonl"), jsonl(
		claudeLine(ts(15, 11), "msg_2", "req_2", "claude-haiku-4-5", 20, 0, 0, 2),
	))
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(root, "proj"), later, later); err != nil {
		t.Fatal(err)
	}
	report, err := LoadDailyReport(core.ProviderClaude, since, until, now, opts)
	if err != nil {
		t.Fatal(err)
	}
	if e, _ := report.Entry("2025-01-15"); e.InputTokens != 30 {
		t.Fatalf("InputTokens = %d, want 30", e.InputTokens)
	}
}

func TestLoadDailyReport_CorruptCacheStartsCold(t *testing.T) {
	opts := testOptions(t)
	writeCodexSession(t, opts.CodexSessionsRoot, 15, "rollout.jsonl", jsonl(codexLastLine(ts(15, 10), 10, 0, 1)))
	store := NewCacheStore(opts.CacheRoot)

	for _, doc := range []string{
		`{not json`,
		`{"version":1,"lastScanUnixMs":1,"files":{},"days":{"2025-01-15":{"gpt-5":[1,2]}}}`,
		`{"version":1,"lastScanUnixMs":1,"files":{},"days":{"2025-01-15":{"gpt-5":[-1,0,0]}}}`,
		`{"version":99,"files":{},"days":{}}`,
	} {
		writeFile(t, store.Path(core.ProviderCodex), doc)
		report, err := LoadDailyReport(core.ProviderCodex, localTime(15, 0), localTime(15, 0), localTime(16, 8), opts)
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if e, ok := report.Entry("2025-01-15"); !ok || e.InputTokens != 10 {
			t.Fatalf("%s: entry = %+v, %v", doc, e, ok)
		}
	}
}

func TestLoadDailyReport_MissingRootsAreEmpty(t *testing.T) {
	opts := Options{
		CodexSessionsRoot:   filepath.Join(t.TempDir(), "missing"),
		ClaudeProjectsRoots: []string{filepath.Join(t.TempDir(), "missing")},
		CacheRoot:           t.TempDir(),
	}
	for _, p := range core.Providers {
		report, err := LoadDailyReport(p, localTime(15, 0), localTime(15, 0), localTime(16, 8), opts)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if report.Data == nil || len(report.Data) != 0 || report.Summary != nil {
			t.Fatalf("%s: report = %+v, want empty", p, report)
		}
	}
}

func TestLoadDailyReport_UnknownProvider(t *testing.T) {
	_, err := LoadDailyReport("cursor", localTime(15, 0), localTime(15, 0), localTime(16, 8), testOptions(t))
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
	if _, err := VerifyCache("cursor", testOptions(t)); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("VerifyCache err = %v", err)
	}
}

func TestScanner_UsesInjectedClock(t *testing.T) {
	opts := testOptions(t)
	writeCodexSession(t, opts.CodexSessionsRoot, 15, "rollout.jsonl", jsonl(codexLastLine(ts(15, 10), 10, 0, 1)))
	s := &Scanner{Options: opts, Now: func() time.Time { return localTime(16, 8) }}

	report, err := s.DailyReport(core.ProviderCodex, localTime(15, 0), localTime(15, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Data) != 1 {
		t.Fatalf("report = %+v", report.Data)
	}
	cache := loadCache[CodexCounts](NewCacheStore(opts.CacheRoot), core.ProviderCodex)
	if cache.LastScanUnixMs != localTime(16, 8).UnixMilli() {
		t.Fatalf("LastScanUnixMs = %d", cache.LastScanUnixMs)
	}
}

func TestRefreshDue(t *testing.T) {
	now := localTime(16, 8)
	tests := []struct {
		name string
		last int64
		want bool
	}{
		{"never scanned", 0, true},
		{"recent", now.Add(-10 * time.Second).UnixMilli(), false},
		{"stale", now.Add(-DefaultRefreshMinInterval).UnixMilli(), true},
		{"future", now.Add(time.Minute).UnixMilli(), true},
	}
	for _, tt := range tests {
		if got := refreshDue(tt.last, now, DefaultRefreshMinInterval); got != tt.want {
			t.Errorf("%s: refreshDue = %v, want %v", tt.name, got, tt.want)
		}
	}
}
