// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags -X. Builds without ldflags fall back to the VCS
// stamp the go command embeds.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
)

// shortCommitLength matches git rev-parse --short.
const shortCommitLength = 7

// stamp is the effective commit, dirty flag and build time.
type stamp struct {
	commit string
	dirty  bool
	time   string
}

func currentStamp() stamp {
	current := stamp{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if GitCommit != "unknown" {
		return current
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return current
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			current.commit = setting.Value
			if len(current.commit) > shortCommitLength {
				current.commit = current.commit[:shortCommitLength]
			}
		case "vcs.modified":
			current.dirty = setting.Value == "true"
		case "vcs.time":
			if BuildTime == "unknown" {
				current.time = setting.Value
			}
		}
	}
	return current
}

// Info is "<version> (<commit>[-dirty], <build time>)".
func Info() string {
	current := currentStamp()
	commit := current.commit
	if current.dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, current.time)
}

// Full appends the toolchain and platform to Info, for the version
// command.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Commit returns the effective short commit.
func Commit() string {
	return currentStamp().commit
}

// UserAgent is the User-Agent header sent with every request.
func UserAgent() string {
	return "matrixwire/" + Version
}
