// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"regexp"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/wire"
)

// Record is one exchange as stored in a transcript.
type Record struct {
	StartedAt  time.Time     `cbor:"started_at"`
	Duration   time.Duration `cbor:"duration_ns"`
	Method     string        `cbor:"method"`
	Host       string        `cbor:"host"`
	Path       string        `cbor:"path"`
	StatusCode int           `cbor:"status,omitempty"`
	BytesRead  int           `cbor:"bytes_read"`
	Headers    string        `cbor:"headers,omitempty"`
	Body       []byte        `cbor:"body,omitempty"`
	// Error is the transport error text, empty on success.
	Error string `cbor:"error,omitempty"`
}

// RecordFrom converts an exchange into a Record with secrets redacted.
// The path is redacted too: sync cursors are harmless but query strings
// may carry anything.
func RecordFrom(exchange wire.Exchange) Record {
	record := Record{
		StartedAt:  exchange.StartedAt,
		Duration:   exchange.Duration,
		Method:     exchange.Method,
		Host:       exchange.Host,
		Path:       redactQuery(exchange.Path),
		StatusCode: exchange.StatusCode,
		BytesRead:  exchange.BytesRead,
		Headers:    exchange.Headers,
		Body:       Redact(exchange.Body),
	}
	if exchange.Err != nil {
		record.Error = exchange.Err.Error()
	}
	return record
}

// Redacted is the replacement for secret values.
const Redacted = "<redacted>"

var (
	// A value cut off by the response length cap still counts.
	secretField = regexp.MustCompile(`"(access_token|refresh_token|password)"(\s*:\s*)"(?:[^"\\]|\\.)*(?:"|\\?$)`)
	secretQuery = regexp.MustCompile(`([?&](?:access_token|refresh_token)=)[^&]*`)
)

// Redact returns a copy of a JSON body with every access_token,
// refresh_token and password string value replaced by Redacted.
func Redact(body []byte) []byte {
	if body == nil {
		return nil
	}
	return secretField.ReplaceAll(body, []byte(`"$1"$2"`+Redacted+`"`))
}

func redactQuery(path string) string {
	return secretQuery.ReplaceAllString(path, "${1}"+Redacted)
}
