// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile persists a single value as a CBOR file, optionally
// sealed with age so that tokens never reach the disk in plaintext.
//
// Writes are atomic: the encoded value goes to a temporary file in the
// target directory, is fsynced, and is renamed into place, so a reader
// sees either the previous state or the new one. Files are created with
// mode 0600.
//
// Read accepts both forms. A sealed file needs the matching identity; a
// plaintext file is decoded directly, which lets a deployment start
// sealing without migrating existing state.
package statefile
