// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for matrixwire packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls.
//
// [WriteFile] writes a fixture file (configuration, password, state)
// into a per-test temporary directory and returns its path.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation (room IDs, event IDs, transaction IDs).
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no matrixwire-internal dependencies.
package testutil
