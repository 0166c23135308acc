package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/costusage"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAutoDetect_CountsLogs(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	codexRoot := t.TempDir()
	touch(t, filepath.Join(codexRoot, "2025", "01", "15", "rollout-1.jsonl"))
	touch(t, filepath.Join(codexRoot, "2025", "01", "16", "rollout-2.JSONL"))
	touch(t, filepath.Join(codexRoot, "2025", "01", "16", "notes.txt"))
	claudeRoot := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing")

	tools := AutoDetect(costusage.Options{
		CodexSessionsRoot:   codexRoot,
		ClaudeProjectsRoots: []string{claudeRoot, missing},
	})
	if len(tools) != 2 {
		t.Fatalf("tools = %+v", tools)
	}

	codex := tools[0]
	if codex.Provider != core.ProviderCodex || codex.BinaryPath != "" {
		t.Fatalf("codex = %+v", codex)
	}
	if len(codex.Roots) != 1 || !codex.Roots[0].Exists || codex.Roots[0].Logs != 2 || !codex.HasLogs() {
		t.Fatalf("codex roots = %+v", codex.Roots)
	}

	claude := tools[1]
	if claude.Provider != core.ProviderClaude || len(claude.Roots) != 2 {
		t.Fatalf("claude = %+v", claude)
	}
	if claude.HasLogs() || !claude.Roots[0].Exists || claude.Roots[1].Exists {
		t.Fatalf("claude roots = %+v", claude.Roots)
	}
}

func TestFindBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "codex")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
	if got := findBinary("codex"); got != bin {
		t.Fatalf("findBinary = %q, want %q", got, bin)
	}
	if got := findBinary("claude"); got != "" {
		t.Fatalf("findBinary(claude) = %q, want empty", got)
	}
}
