// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding shared by matrixwire's
// on-disk formats.
//
// JSON is reserved for the Matrix wire protocol. Everything matrixwire
// writes for itself (session snapshots, transcript records) is CBOR,
// encoded with Core Deterministic Encoding (RFC 8949 §4.2) so the same
// logical data always produces identical bytes. Timestamps are encoded
// as RFC 3339 strings with nanosecond precision.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For record streams:
//
//	encoder := codec.NewEncoder(writer)
//	decoder := codec.NewDecoder(reader)
//
// Types that are only ever CBOR use `cbor` struct tags. Types that are
// also rendered as JSON use `json` tags, which fxamacker/cbor reads as a
// fallback. Never put both tags on one field.
package codec
