package costusage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
	"github.com/zzfadi/CodexBar-sub002/internal/providers/shared"
)

// FileCandidate is a non-empty log file found during discovery.
type FileCandidate struct {
	Path        string
	Size        int64
	MtimeUnixMs int64
}

func hasExt(name, ext string) bool {
	return strings.HasSuffix(strings.ToLower(name), ext)
}

func candidateFromInfo(path string, info fs.FileInfo) (FileCandidate, bool) {
	if info == nil || !info.Mode().IsRegular() || info.Size() <= 0 {
		return FileCandidate{}, false
	}
	return FileCandidate{Path: path, Size: info.Size(), MtimeUnixMs: info.ModTime().UnixMilli()}, true
}

// DiscoverDateBucketed lists root/YYYY/MM/DD/*ext for every day of the padded
// scan window. Missing or unreadable day directories contribute nothing.
func DiscoverDateBucketed(root string, rng core.DayRange, ext string) []FileCandidate {
	if root == "" {
		return nil
	}
	var out []FileCandidate
	for _, day := range rng.ScanDays() {
		dayDir := filepath.Join(root, day.Format("2006"), day.Format("01"), day.Format("02"))
		entries, err := os.ReadDir(dayDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !hasExt(entry.Name(), ext) {
				continue
			}
			path := filepath.Join(dayDir, entry.Name())
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if c, ok := candidateFromInfo(path, info); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// DiscoverRecursive walks each canonical root for *ext files. dirMtimes holds
// the directory mtimes recorded by the previous walk and is updated in place.
// When no recorded directory under a root has changed, the walk is skipped
// and only the known files under that root are re-stat'ed.
func DiscoverRecursive(roots []string, ext string, dirMtimes map[string]int64, known []string) []FileCandidate {
	canonical := shared.CanonicalRoots(roots)

	for dir := range dirMtimes {
		if !lo.SomeBy(canonical, func(root string) bool { return shared.IsUnder(dir, root) }) {
			delete(dirMtimes, dir)
		}
	}

	var out []FileCandidate
	for _, root := range canonical {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			forgetDirs(dirMtimes, root)
			continue
		}
		if dirsUnchanged(root, dirMtimes) {
			out = append(out, restatKnown(root, known)...)
			continue
		}
		forgetDirs(dirMtimes, root)
		out = append(out, walkRoot(root, ext, dirMtimes)...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return lo.UniqBy(out, func(c FileCandidate) string { return c.Path })
}

func forgetDirs(dirMtimes map[string]int64, root string) {
	for dir := range dirMtimes {
		if shared.IsUnder(dir, root) {
			delete(dirMtimes, dir)
		}
	}
}

// dirsUnchanged is true when the root was walked before and neither it nor
// any directory recorded below it has a different mtime now.
func dirsUnchanged(root string, dirMtimes map[string]int64) bool {
	if _, ok := dirMtimes[root]; !ok {
		return false
	}
	for dir, mtime := range dirMtimes {
		if !shared.IsUnder(dir, root) {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() || info.ModTime().UnixMilli() != mtime {
			return false
		}
	}
	return true
}

func restatKnown(root string, known []string) []FileCandidate {
	var out []FileCandidate
	for _, path := range known {
		if !shared.IsUnder(path, root) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if c, ok := candidateFromInfo(path, info); ok {
			out = append(out, c)
		}
	}
	return out
}

func walkRoot(root, ext string, dirMtimes map[string]int64) []FileCandidate {
	var out []FileCandidate
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil {
			return nil
		}
		if d.IsDir() {
			if info, err := d.Info(); err == nil {
				dirMtimes[path] = info.ModTime().UnixMilli()
			}
			return nil
		}
		if !hasExt(d.Name(), ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if c, ok := candidateFromInfo(path, info); ok {
			out = append(out, c)
		}
		return nil
	})
	return out
}
