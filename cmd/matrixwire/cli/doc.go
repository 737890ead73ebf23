// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command-tree framework behind the matrixwire
// binary: nested [Command] values with lazily built pflag sets,
// structured help, and typo suggestions for unknown commands and flags.
package cli
