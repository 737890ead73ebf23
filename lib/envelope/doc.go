// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope isolates and decodes the JSON object carried in a
// raw homeserver response.
//
// [Extract] trims everything outside the first '{' and the last '}' of
// a response body. Servers, proxies and the heuristic read loop in
// lib/wire can leave transport noise around the object (stray chunk
// sizes, trailing CRLF, a truncated tail); extraction discards it and
// is idempotent on an already-extracted body.
//
// [Parse] validates the text and returns a [Document] with path-based
// typed access:
//
//	doc, err := envelope.Parse(body)
//	if err != nil { ... } // *ParseError, errors.Is(err, envelope.ErrParse)
//	baseURL := doc.String("", "m.homeserver", "base_url")
//	expires := doc.Uint(0, "expires_in_ms")
//	doc.Object("rooms", "join").ForEach(func(roomID string, room *envelope.Document) bool { ... })
//
// Path segments are literal object keys: a key containing dots (such
// as "m.homeserver") is a single segment. A parse failure is terminal
// for the caller's operation; there is no partial-document recovery.
// The Document is backed by github.com/tidwall/gjson, which reads
// values directly out of the original bytes without building a tree.
package envelope
