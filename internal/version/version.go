// Package version exposes build metadata for the ecofan binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/ecofan/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/ecofan/internal/version.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fillFromSettings(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fillFromSettings reads the vcs.* keys the go tool stamps into binaries
// built inside a git checkout.
func fillFromSettings(settings []debug.BuildSetting) {
	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := values["vcs.revision"]; rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if values["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Commit = rev
		}
	}

	if Version == "" {
		if ts := values["vcs.time"]; len(ts) >= 10 {
			Version = "dev-" + strings.ReplaceAll(ts[:10], "-", "")
		}
	}
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with every request to a fan.
func UserAgent() string {
	return "ecofan/" + Version
}
