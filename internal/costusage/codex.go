package costusage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/pricing"
	"github.com/zzfadi/CodexBar-sub002/internal/providers/shared"
)

const (
	codexHomeEnv         = "CODEX_HOME"
	codexFallbackModel   = "gpt-5"
	codexSessionsSubdir  = "sessions"
	codexSessionFileExt  = ".jsonl"
	codexTypeTurnContext = "turn_context"
	codexTypeEventMsg    = "event_msg"
	codexTypeTokenCount  = "token_count"
)

var (
	codexMarkerTurnContext = []byte(`"turn_context"`)
	codexMarkerTokenCount  = []byte(`"token_count"`)
)

// DefaultCodexSessionsRoot resolves $CODEX_HOME/sessions, else ~/.codex/sessions.
func DefaultCodexSessionsRoot() string {
	if env := strings.TrimSpace(os.Getenv(codexHomeEnv)); env != "" {
		return filepath.Join(shared.ExpandHome(env), codexSessionsSubdir)
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ""
	}
	return filepath.Join(home, ".codex", codexSessionsSubdir)
}

// codexState is the continuation carried between incremental passes.
type codexState struct {
	Model  string
	Totals *CodexCounts
}

// fileParse is the outcome of parsing one file from an offset.
type fileParse[T any] struct {
	Days           DayModels[T]
	ParsedBytes    int64
	LastModel      *string
	LastTotals     *CodexCounts
	LastMessageKey *string
}

// codexDelta returns the marginal usage of a cumulative snapshot. Components
// that went backwards (counter reset, reordered lines) count as zero.
func codexDelta(prev *CodexCounts, total CodexCounts) CodexCounts {
	if prev == nil {
		return total
	}
	return CodexCounts{
		Input:       max(total.Input-prev.Input, 0),
		CachedInput: max(total.CachedInput-prev.CachedInput, 0),
		Output:      max(total.Output-prev.Output, 0),
	}
}

func codexUsage(r gjson.Result) CodexCounts {
	cached := r.Get("cached_input_tokens").Int()
	if cached == 0 {
		cached = r.Get("cache_read_input_tokens").Int()
	}
	return CodexCounts{
		Input:       max(r.Get("input_tokens").Int(), 0),
		CachedInput: max(cached, 0),
		Output:      max(r.Get("output_tokens").Int(), 0),
	}
}

func recordTime(res gjson.Result) (time.Time, bool) {
	ts := res.Get("timestamp")
	switch ts.Type {
	case gjson.Number:
		if ts.Int() <= 0 {
			return time.Time{}, false
		}
		return shared.UnixAuto(ts.Int()), true
	case gjson.String:
		t, err := shared.ParseTimestampString(ts.String())
		return t, err == nil
	}
	return time.Time{}, false
}

func codexTurnModel(res gjson.Result) string {
	return shared.FirstNonEmpty(
		res.Get("payload.model").String(),
		res.Get("payload.info.model").String(),
		res.Get("payload.info.model_name").String(),
		res.Get("payload.metadata.model").String(),
	)
}

func codexEventModel(res gjson.Result) string {
	return shared.FirstNonEmpty(
		res.Get("payload.info.model").String(),
		res.Get("payload.info.model_name").String(),
		res.Get("payload.model").String(),
		res.Get("payload.metadata.model").String(),
		res.Get("model").String(),
	)
}

// ParseCodexFile reads a Codex session log from offset. turn_context records
// set the model for later token_count events, whose total_token_usage is a
// running total since session start; the carried snapshot turns it into
// per-event deltas and is returned so a later call can resume at ParsedBytes.
func ParseCodexFile(path string, offset int64, state codexState, rng core.DayRange) (fileParse[CodexCounts], error) {
	out := fileParse[CodexCounts]{Days: make(DayModels[CodexCounts])}

	f, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("open codex session: %w", err)
	}
	defer f.Close()

	model := state.Model
	var totals *CodexCounts
	if state.Totals != nil {
		t := *state.Totals
		totals = &t
	}

	end, err := ScanLines(f, offset, maxLineBytes, readChunkBytes, func(line Line) {
		if line.Truncated || len(line.Bytes) == 0 {
			return
		}
		isTurn := bytes.Contains(line.Bytes, codexMarkerTurnContext)
		if !isTurn && !bytes.Contains(line.Bytes, codexMarkerTokenCount) {
			return
		}
		if !gjson.ValidBytes(line.Bytes) {
			return
		}
		res := gjson.ParseBytes(line.Bytes)

		lineType := res.Get("type").String()
		switch lineType {
		case codexTypeTurnContext:
		case codexTypeEventMsg:
			if res.Get("payload.type").String() != codexTypeTokenCount {
				return
			}
		default:
			return
		}

		ts, ok := recordTime(res)
		if !ok {
			return
		}

		if lineType == codexTypeTurnContext {
			if m := codexTurnModel(res); m != "" {
				model = m
			}
			return
		}

		info := res.Get("payload.info")
		var delta CodexCounts
		if total := info.Get("total_token_usage"); total.Exists() {
			snapshot := codexUsage(total)
			delta = codexDelta(totals, snapshot)
			totals = &snapshot
		} else if last := info.Get("last_token_usage"); last.Exists() {
			delta = codexUsage(last)
		} else {
			return
		}
		delta.CachedInput = min(delta.CachedInput, delta.Input)
		if delta.IsZero() {
			return
		}

		day := core.DayKey(ts)
		if !rng.InScan(day) {
			return
		}
		name := shared.FirstNonEmpty(codexEventModel(res), model, codexFallbackModel)
		addCounts(out.Days, day, pricing.NormalizeModel(name), delta)
	})
	out.ParsedBytes = end
	if model != "" {
		out.LastModel = &model
	}
	out.LastTotals = totals
	if err != nil {
		return out, err
	}
	return out, nil
}
