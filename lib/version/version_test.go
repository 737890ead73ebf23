// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, version, commit, dirty, buildTime string) {
	t.Helper()
	savedVersion, savedCommit, savedDirty, savedTime := Version, GitCommit, GitDirty, BuildTime
	t.Cleanup(func() {
		Version, GitCommit, GitDirty, BuildTime = savedVersion, savedCommit, savedDirty, savedTime
	})
	Version, GitCommit, GitDirty, BuildTime = version, commit, dirty, buildTime
}

func TestInfo(t *testing.T) {
	withBuildInfo(t, "1.2.3", "abc1234", "false", "2026-01-01T00:00:00Z")
	if got, want := Info(), "1.2.3 (abc1234, 2026-01-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestInfoDirty(t *testing.T) {
	withBuildInfo(t, "1.2.3", "abc1234", "true", "now")
	if got, want := Info(), "1.2.3 (abc1234-dirty, now)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestFullIncludesInfo(t *testing.T) {
	withBuildInfo(t, "1.2.3", "abc1234", "false", "now")
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q, want prefix %q", full, Info())
	}
	if !strings.Contains(full, "Go: ") {
		t.Errorf("Full() = %q, missing Go version", full)
	}
}

func TestCommitAndUserAgent(t *testing.T) {
	withBuildInfo(t, "2.0.0", "deadbee", "false", "now")
	if Commit() != "deadbee" {
		t.Errorf("Commit() = %q", Commit())
	}
	if UserAgent() != "matrixwire/2.0.0" {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}

// Without ldflags the commit comes from the embedded VCS stamp, which
// test binaries do not carry, so the placeholder survives.
func TestCommitFallback(t *testing.T) {
	withBuildInfo(t, "2.0.0", "unknown", "false", "unknown")
	commit := Commit()
	if commit == "" {
		t.Fatal("Commit() is empty")
	}
	if commit != "unknown" && len(commit) != shortCommitLength {
		t.Errorf("Commit() = %q, want a %d-character revision or the placeholder", commit, shortCommitLength)
	}
}
