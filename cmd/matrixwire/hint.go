// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/matrixwire/messaging"
)

// errorHint suggests what to do about a failed command, or returns ""
// when there is nothing useful to add to the error itself.
func errorHint(err error) string {
	var matrixErr *messaging.MatrixError
	if errors.As(err, &matrixErr) {
		switch matrixErr.Code {
		case messaging.ErrCodeUnknownToken, messaging.ErrCodeMissingToken:
			return "the saved session is no longer valid; run 'matrixwire login'"
		case messaging.ErrCodeLimitExceeded:
			if matrixErr.RetryAfterMs == 0 {
				return "rate limited by the homeserver; retry later"
			}
			retryAfter := time.Duration(matrixErr.RetryAfterMs) * time.Millisecond
			return fmt.Sprintf("rate limited by the homeserver; retry in %s", retryAfter)
		case messaging.ErrCodeForbidden:
			return "the homeserver refused the request; check the password and the account's room permissions"
		case messaging.ErrCodeTooLarge:
			return "the homeserver's upload size limit was exceeded"
		}
	}
	if errors.Is(err, messaging.ErrRefreshFailed) {
		return "the access token could not be refreshed; run 'matrixwire login'"
	}
	return ""
}
