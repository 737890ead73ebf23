// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads matrixwire client configuration.
//
// Configuration comes from a single file named by either the
// MATRIXWIRE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no automatic file search.
// Files ending in .json or .jsonc are JSON with comments; everything else
// is YAML.
//
// The file may contain development, staging and production sections
// that override base values when [Config].Environment matches.
// ${HOME} and ${VAR:-default} are expanded in path fields after loading.
// Durations accept Go duration strings or integer milliseconds.
//
// [Config.Validate] reports every problem in one joined error.
package config
