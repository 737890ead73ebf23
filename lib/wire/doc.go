// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire frames HTTP/1.1 requests and responses directly over a
// caller-supplied byte-stream connection.
//
// It is deliberately not an HTTP client. It supports exactly what the
// Matrix client-server API needs from a constrained transport: one
// request per connection, a JSON or raw body, bearer authorization, and
// a response whose end is detected heuristically rather than from
// Content-Length or chunk framing. There are no redirects, no chunked
// transfer decoding, no keep-alive and no compression.
//
// A [Framer] owns one [Conn] and reuses it sequentially: every call to
// [Framer.Do] connects, writes the request, polls the connection until
// the response goes quiet (or the read budget runs out), extracts the
// JSON envelope from the body, and closes the connection.
//
// The read loop stops when bytes have been observed and a full poll
// interval passes with nothing new, when the connection reports end of
// stream, or when SyncTimeout + ResponseGrace elapses. A response body
// longer than MaxResponseLength is truncated; the excess is read and
// discarded so memory stays bounded.
//
// [TLSConn] is the production Conn: crypto/tls with a background
// reader that turns the blocking net.Conn into the poll-style
// ReadAvailable contract. Trust configuration is supplied by the
// caller.
package wire
