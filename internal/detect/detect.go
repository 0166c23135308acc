// Package detect reports which supported coding tools are installed and
// where their usage logs live on this workstation.
package detect

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/costusage"
	"github.com/zzfadi/CodexBar-sub002/internal/providers/shared"
)

// DetectedTool is one provider's CLI and log roots.
type DetectedTool struct {
	Provider   core.ProviderID
	Name       string // e.g. "Claude Code CLI"
	BinaryPath string // empty when not on PATH
	Roots      []Root
}

// Root is a log directory and how many session logs it holds.
type Root struct {
	Path   string
	Exists bool
	Logs   int
}

// HasLogs reports whether any root holds at least one session log.
func (t DetectedTool) HasLogs() bool {
	for _, r := range t.Roots {
		if r.Logs > 0 {
			return true
		}
	}
	return false
}

// AutoDetect inspects every provider. Roots come from opts when set, else
// from the same environment-based defaults the scanner uses.
func AutoDetect(opts costusage.Options) []DetectedTool {
	return []DetectedTool{
		detectCodex(opts),
		detectClaudeCode(opts),
	}
}

func detectCodex(opts costusage.Options) DetectedTool {
	root := opts.CodexSessionsRoot
	if root == "" {
		root = costusage.DefaultCodexSessionsRoot()
	}
	tool := DetectedTool{
		Provider:   core.ProviderCodex,
		Name:       "OpenAI Codex CLI",
		BinaryPath: findBinary("codex"),
	}
	if root != "" {
		tool.Roots = append(tool.Roots, inspectRoot(root))
	}
	logTool(tool)
	return tool
}

func detectClaudeCode(opts costusage.Options) DetectedTool {
	roots := opts.ClaudeProjectsRoots
	if len(roots) == 0 {
		roots = costusage.DefaultClaudeProjectsRoots()
	}
	tool := DetectedTool{
		Provider:   core.ProviderClaude,
		Name:       "Claude Code CLI",
		BinaryPath: findBinary("claude"),
	}
	for _, root := range shared.CanonicalRoots(roots) {
		tool.Roots = append(tool.Roots, inspectRoot(root))
	}
	logTool(tool)
	return tool
}

func logTool(t DetectedTool) {
	if t.BinaryPath != "" {
		log.Printf("[detect] Found %s at %s", t.Name, t.BinaryPath)
	}
	for _, r := range t.Roots {
		log.Printf("[detect] %s root %s exists=%v logs=%d", t.Provider, r.Path, r.Exists, r.Logs)
	}
}

// inspectRoot counts *.jsonl files below root.
func inspectRoot(root string) Root {
	r := Root{Path: root}
	if !dirExists(root) {
		return r
	}
	r.Exists = true
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".jsonl") {
			r.Logs++
		}
		return nil
	})
	return r
}

// findBinary looks up name on PATH.
func findBinary(name string) string {
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
