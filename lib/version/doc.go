// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for matrixwire
// binaries.
//
// Package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/matrixwire/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without them, the commit and build time come from the VCS stamp in
// the binary's build info. [UserAgent] is what the wire framer sends.
package version
