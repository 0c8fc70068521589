package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFillFromSettings(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "", ""
	fillFromSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2026-03-14T09:26:53Z"},
	})

	if Commit != "0123456-dirty" {
		t.Errorf("Commit = %q, want 0123456-dirty", Commit)
	}
	if Version != "dev-20260314" {
		t.Errorf("Version = %q, want dev-20260314", Version)
	}
}

func TestFillFromSettings_KeepsLdflags(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "v1.0.0", "feedbee"
	fillFromSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789"}})

	if Version != "v1.0.0" || Commit != "feedbee" {
		t.Errorf("ldflags values overwritten: %s", Full())
	}
}

func TestUserAgent(t *testing.T) {
	if !strings.HasPrefix(UserAgent(), "ecofan/") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
