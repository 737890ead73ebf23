// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps session credentials (passwords, access tokens,
// refresh tokens) out of the Go heap.
//
// [Buffer] allocates an anonymous mmap region, marks it
// MADV_DONTDUMP, locks it with mlock when RLIMIT_MEMLOCK allows, and
// zeroes it on Close. The garbage collector never sees the region, so
// a token that has been replaced and closed does not linger in a heap
// copy.
//
// A nil *Buffer stands for "no secret". [NewFromString] returns nil
// for the empty string, and every read method treats nil as empty, so
// callers can hold an optional credential in a single field.
//
// [ReadFromPath] and [ReadLine] load passwords from files or stdin for
// command-line use.
package secret
