package shared

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

func ExpandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err == nil && home != "" {
			if path == "~" {
				return home
			}
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// CanonicalRoot maps every alias of a directory (symlinked prefixes such as
// /var and /private/var, relative paths, ~) onto one absolute path. Paths that
// do not exist yet are returned cleaned and absolute.
func CanonicalRoot(path string) string {
	path = ExpandHome(path)
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	// The leaf may be missing while a parent is an alias; resolve what exists.
	parent, leaf := filepath.Split(abs)
	if resolved, err := filepath.EvalSymlinks(filepath.Clean(parent)); err == nil && leaf != "" {
		return filepath.Join(resolved, leaf)
	}
	return abs
}

// CanonicalRoots canonicalizes and de-duplicates roots, keeping first-seen order.
func CanonicalRoots(roots []string) []string {
	out := lo.FilterMap(roots, func(root string, _ int) (string, bool) {
		c := CanonicalRoot(root)
		return c, c != ""
	})
	return lo.Uniq(out)
}

// IsUnder reports whether path is root itself or nested below it.
func IsUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
