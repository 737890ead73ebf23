// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import "bytes"

// Extract returns the substring of body from the first '{' through the
// last '}' inclusive. When body has no opening brace, or no closing
// brace after it, body is returned unchanged.
func Extract(body []byte) []byte {
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start == -1 || end == -1 || end < start {
		return body
	}
	return body[start : end+1]
}
