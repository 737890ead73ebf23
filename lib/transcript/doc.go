// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript records every homeserver exchange to an
// append-only diagnostics file and reads it back.
//
// A transcript starts with an 8-byte magic header followed by frames:
//
//	[1 byte compression tag][uvarint plain size][uvarint stored size][stored bytes]
//
// The stored bytes decompress to one CBOR-encoded [Record]. Each frame
// picks its own compression so that a small or incompressible record
// falls back to [CompressionNone] without affecting its neighbours.
//
// [Writer] implements wire.Observer. Token, password and refresh token
// values are redacted from response bodies before they are encoded, so
// a transcript can be shared in a bug report.
package transcript
