// Package version holds build-time metadata injected via ldflags.
package version

import "strings"

// Set with -ldflags "-X github.com/zzfadi/CodexBar-sub002/internal/version.Version=v0.3.0"
// and likewise for CommitHash and BuildDate.
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// String renders the version with whatever build metadata is known.
func String() string {
	var extra []string
	if CommitHash != "" && CommitHash != "unknown" {
		extra = append(extra, CommitHash)
	}
	if BuildDate != "" && BuildDate != "unknown" {
		extra = append(extra, "built "+BuildDate)
	}
	if len(extra) == 0 {
		return Version
	}
	return Version + " (" + strings.Join(extra, ", ") + ")"
}
