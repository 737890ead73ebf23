// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "errors"

var (
	// ErrInvalidURL is returned for URLs without "://" or without a
	// path separator after the host.
	ErrInvalidURL = errors.New("wire: invalid URL")

	// ErrConnectionFailed is returned when the connection cannot be
	// established or the request cannot be written.
	ErrConnectionFailed = errors.New("wire: connection failed")

	// ErrNoResponse is returned when the read budget elapses (or the
	// context ends) before any response byte arrives.
	ErrNoResponse = errors.New("wire: no response")
)
