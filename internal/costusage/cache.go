package costusage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/bytedance/sonic"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
)

// cacheVersion is bumped whenever the on-disk shape or parse semantics change;
// a mismatching document is discarded and rebuilt from the logs.
const cacheVersion = 1

// FileUsage is one log file's own contribution plus what is needed to resume
// parsing it after it grows.
type FileUsage[T any] struct {
	MtimeUnixMs int64        `json:"mtimeUnixMs"`
	Size        int64        `json:"size"`
	Days        DayModels[T] `json:"days"`
	ParsedBytes int64        `json:"parsedBytes"`

	// Continuation state.
	LastModel      *string      `json:"lastModel,omitempty"`
	LastTotals     *CodexCounts `json:"lastTotals,omitempty"`
	LastMessageKey *string      `json:"lastMessageKey,omitempty"`
}

// Cache is the persisted per-provider scan state. Days always equals the sum
// of Files[*].Days.
type Cache[T any] struct {
	Version        int                      `json:"version"`
	LastScanUnixMs int64                    `json:"lastScanUnixMs"`
	ScanSinceKey   string                   `json:"scanSinceKey,omitempty"`
	ScanUntilKey   string                   `json:"scanUntilKey,omitempty"`
	Files          map[string]*FileUsage[T] `json:"files"`
	Days           DayModels[T]             `json:"days"`
	// Roots holds directory mtimes (ms) of recursive roots and the
	// directories below them, keyed by canonical path.
	Roots map[string]int64 `json:"roots,omitempty"`
}

func newCache[T any]() *Cache[T] {
	return &Cache[T]{
		Version: cacheVersion,
		Files:   make(map[string]*FileUsage[T]),
		Days:    make(DayModels[T]),
		Roots:   make(map[string]int64),
	}
}

func (c *Cache[T]) scanRange() core.DayRange {
	return core.DayRange{ScanSinceKey: c.ScanSinceKey, ScanUntilKey: c.ScanUntilKey}
}

// CacheStore reads and writes one JSON document per provider under Dir.
type CacheStore struct {
	Dir string
}

func NewCacheStore(dir string) CacheStore {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	return CacheStore{Dir: dir}
}

// DefaultCacheDir returns the XDG cache location for scan caches.
func DefaultCacheDir() string {
	base := xdg.CacheHome
	if base == "" {
		if userCacheDir, err := os.UserCacheDir(); err == nil {
			base = userCacheDir
		} else {
			base = os.TempDir()
		}
	}
	return filepath.Join(base, "codexbar", "cost-usage")
}

func (s CacheStore) Path(provider core.ProviderID) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s-v%d.json", provider, cacheVersion))
}

// loadCache never fails: a missing, unreadable, corrupt or outdated document
// yields an empty cache and the next scan starts cold.
func loadCache[T any](s CacheStore, provider core.ProviderID) *Cache[T] {
	path := s.Path(provider)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[costusage] %s cache unreadable, starting cold: %v", provider, err)
		}
		return newCache[T]()
	}

	var c Cache[T]
	if err := sonic.ConfigStd.Unmarshal(data, &c); err != nil {
		log.Printf("[costusage] %s cache corrupt, starting cold: %v", provider, err)
		return newCache[T]()
	}
	if c.Version != cacheVersion {
		log.Printf("[costusage] %s cache version %d != %d, starting cold", provider, c.Version, cacheVersion)
		return newCache[T]()
	}
	if c.Files == nil {
		c.Files = make(map[string]*FileUsage[T])
	}
	if c.Days == nil {
		c.Days = make(DayModels[T])
	}
	if c.Roots == nil {
		c.Roots = make(map[string]int64)
	}
	for path, fu := range c.Files {
		if fu == nil {
			delete(c.Files, path)
			continue
		}
		if fu.Days == nil {
			fu.Days = make(DayModels[T])
		}
	}
	return &c
}

// saveCache replaces the document atomically: write a sibling temp file,
// fsync, rename over the target.
func saveCache[T any](s CacheStore, provider core.ProviderID, c *Cache[T]) error {
	data, err := sonic.ConfigStd.Marshal(c)
	if err != nil {
		return fmt.Errorf("costusage: marshal %s cache: %w", provider, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("costusage: create cache dir: %w", err)
	}

	path := s.Path(provider)
	tmp, err := os.CreateTemp(s.Dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("costusage: create temp cache: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("costusage: write temp cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("costusage: sync temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("costusage: close temp cache: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("costusage: rename temp cache: %w", err)
	}
	return nil
}
