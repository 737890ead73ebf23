// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// responseAccumulator splits a response byte stream into headers and
// body. The headers end at the first line that is empty apart from an
// optional '\r'. Body bytes beyond limit are counted but not stored; a
// limit <= 0 stores everything.
type responseAccumulator struct {
	headers         bytes.Buffer
	body            bytes.Buffer
	limit           int
	received        int
	discarded       int
	finishedHeaders bool
	lineBlank       bool
}

func newResponseAccumulator(limit int) *responseAccumulator {
	return &responseAccumulator{limit: limit, lineBlank: true}
}

func (a *responseAccumulator) write(data []byte) {
	a.received += len(data)
	for _, c := range data {
		if !a.finishedHeaders {
			if a.lineBlank && c == '\n' {
				a.finishedHeaders = true
			} else {
				a.headers.WriteByte(c)
			}
		} else if a.limit <= 0 || a.body.Len() < a.limit {
			a.body.WriteByte(c)
		} else {
			a.discarded++
		}

		if c == '\n' {
			a.lineBlank = true
		} else if c != '\r' {
			a.lineBlank = false
		}
	}
}

func (a *responseAccumulator) headerText() string {
	return strings.TrimRight(a.headers.String(), "\r\n")
}

// ParseRaw splits a complete raw HTTP response into its header block
// (status line included, trailing line breaks removed) and its body.
// The body is returned as received; it is not envelope-extracted. A
// response without a blank line is all headers.
func ParseRaw(raw []byte) (headers string, body []byte) {
	accumulator := newResponseAccumulator(0)
	accumulator.write(raw)
	return accumulator.headerText(), accumulator.body.Bytes()
}

// StatusCode parses the status code from the first line of a header
// block ("HTTP/1.1 200 OK"). Returns 0 when the status line is missing
// or malformed.
func StatusCode(headers string) int {
	statusLine, _, _ := strings.Cut(headers, "\n")
	fields := strings.Fields(statusLine)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}
