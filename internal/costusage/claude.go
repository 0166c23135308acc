package costusage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/pricing"
	"github.com/zzfadi/CodexBar-sub002/internal/providers/shared"
)

const (
	claudeConfigDirEnv   = "CLAUDE_CONFIG_DIR"
	claudeProjectsSubdir = "projects"
	claudeLogFileExt     = ".jsonl"
	claudeUnknownModel   = "unknown"
)

var (
	claudeMarkerUsage     = []byte(`"usage"`)
	claudeMarkerAssistant = []byte(`"assistant"`)
)

// DefaultClaudeProjectsRoots resolves $CLAUDE_CONFIG_DIR (comma separated,
// each mapped to its projects/ directory) or the two default config homes.
func DefaultClaudeProjectsRoots() []string {
	var roots []string
	if env := strings.TrimSpace(os.Getenv(claudeConfigDirEnv)); env != "" {
		for _, part := range strings.Split(env, ",") {
			raw := shared.ExpandHome(part)
			if raw == "" {
				continue
			}
			if filepath.Base(filepath.Clean(raw)) == claudeProjectsSubdir {
				roots = append(roots, raw)
			} else {
				roots = append(roots, filepath.Join(raw, claudeProjectsSubdir))
			}
		}
		return roots
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "claude", claudeProjectsSubdir),
		filepath.Join(home, ".claude", claudeProjectsSubdir),
	}
}

// claudeMessageKey identifies one API response. Claude Code writes a line per
// content block of a streamed response, each repeating the same usage.
func claudeMessageKey(res gjson.Result) string {
	id := strings.TrimSpace(res.Get("message.id").String())
	req := strings.TrimSpace(res.Get("requestId").String())
	if id == "" && req == "" {
		return ""
	}
	return id + ":" + req
}

func claudeUsage(usage gjson.Result) ClaudeCounts {
	return ClaudeCounts{
		Input:       max(usage.Get("input_tokens").Int(), 0),
		CacheRead:   max(usage.Get("cache_read_input_tokens").Int(), 0),
		CacheCreate: max(usage.Get("cache_creation_input_tokens").Int(), 0),
		Output:      max(usage.Get("output_tokens").Int(), 0),
	}
}

// ParseClaudeFile reads a Claude Code project log from offset. Each assistant
// record states its own marginal usage; consecutive repeats of the same
// message are counted once. lastKey carries that de-dup across passes.
func ParseClaudeFile(path string, offset int64, lastKey string, rng core.DayRange) (fileParse[ClaudeCounts], error) {
	out := fileParse[ClaudeCounts]{Days: make(DayModels[ClaudeCounts])}

	f, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("open claude log: %w", err)
	}
	defer f.Close()

	end, err := ScanLines(f, offset, maxLineBytes, readChunkBytes, func(line Line) {
		if line.Truncated || len(line.Bytes) == 0 {
			return
		}
		if !bytes.Contains(line.Bytes, claudeMarkerUsage) || !bytes.Contains(line.Bytes, claudeMarkerAssistant) {
			return
		}
		if !gjson.ValidBytes(line.Bytes) {
			return
		}
		res := gjson.ParseBytes(line.Bytes)
		if res.Get("type").String() != "assistant" {
			return
		}
		usage := res.Get("message.usage")
		if !usage.Exists() {
			return
		}
		ts, ok := recordTime(res)
		if !ok {
			return
		}

		key := claudeMessageKey(res)
		if key != "" && key == lastKey {
			return
		}
		lastKey = key

		counts := claudeUsage(usage)
		if counts.IsZero() {
			return
		}
		day := core.DayKey(ts)
		if !rng.InScan(day) {
			return
		}
		model := shared.FirstNonEmpty(res.Get("message.model").String(), claudeUnknownModel)
		addCounts(out.Days, day, pricing.NormalizeModel(model), counts)
	})
	out.ParsedBytes = end
	if lastKey != "" {
		out.LastMessageKey = &lastKey
	}
	if err != nil {
		return out, err
	}
	return out, nil
}
