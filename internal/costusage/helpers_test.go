package costusage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zzfadi/CodexBar-sub002/internal/providers/shared"
)

func localTime(day, hour int) time.Time {
	return time.Date(2025, time.January, day, hour, 0, 0, 0, time.Local)
}

func ts(day, hour int) string {
	return localTime(day, hour).Format(time.RFC3339)
}

func codexTurnLine(at, model string) string {
	return fmt.Sprintf(`{"timestamp":%q,"type":"turn_context","payload":{"model":%q}}`, at, model)
}

func codexTotalLine(at string, input, cached, output int64) string {
	return fmt.Sprintf(`{"timestamp":%q,"type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":%d,"cached_input_tokens":%d,"output_tokens":%d}}}}`,
		at, input, cached, output)
}

func codexLastLine(at string, input, cached, output int64) string {
	return fmt.Sprintf(`{"timestamp":%q,"type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":%d,"cached_input_tokens":%d,"output_tokens":%d}}}}`,
		at, input, cached, output)
}

func claudeLine(at, msgID, reqID, model string, input, cacheRead, cacheCreate, output int64) string {
	return fmt.Sprintf(`{"timestamp":%q,"type":"assistant","requestId":%q,"message":{"id":%q,"model":%q,"usage":{"input_tokens":%d,"cache_read_input_tokens":%d,"cache_creation_input_tokens":%d,"output_tokens":%d}}}`,
		at, reqID, msgID, model, input, cacheRead, cacheCreate, output)
}

func jsonl(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", path, err)
	}
}

// writeCodexSession places a session under root/YYYY/MM/DD like Codex does.
func writeCodexSession(t *testing.T, root string, day int, name, content string) string {
	t.Helper()
	return writeFile(t, filepath.Join(root, "2025", "01", fmt.Sprintf("%02d", day), name), content)
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		CodexSessionsRoot:   shared.CanonicalRoot(t.TempDir()),
		ClaudeProjectsRoots: []string{shared.CanonicalRoot(t.TempDir())},
		CacheRoot:           t.TempDir(),
	}
}
