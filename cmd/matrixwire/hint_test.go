// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bureau-foundation/matrixwire/messaging"
)

func TestErrorHint(t *testing.T) {
	matrixFailure := func(sentinel error, matrixErr *messaging.MatrixError) error {
		return fmt.Errorf("messaging: test: %w: %w", sentinel, matrixErr)
	}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"unknown token",
			matrixFailure(messaging.ErrSendMessageFailed, &messaging.MatrixError{Code: messaging.ErrCodeUnknownToken, StatusCode: 401}),
			"run 'matrixwire login'",
		},
		{
			"missing token",
			matrixFailure(messaging.ErrSendMessageFailed, &messaging.MatrixError{Code: messaging.ErrCodeMissingToken, StatusCode: 401}),
			"run 'matrixwire login'",
		},
		{
			"rate limited with hint",
			matrixFailure(messaging.ErrSendMessageFailed, &messaging.MatrixError{Code: messaging.ErrCodeLimitExceeded, StatusCode: 429, RetryAfterMs: 1500}),
			"retry in 1.5s",
		},
		{
			"rate limited without hint",
			matrixFailure(messaging.ErrSendMessageFailed, &messaging.MatrixError{Code: messaging.ErrCodeLimitExceeded, StatusCode: 429}),
			"retry later",
		},
		{
			"forbidden",
			matrixFailure(messaging.ErrLoginFailed, &messaging.MatrixError{Code: messaging.ErrCodeForbidden, StatusCode: 403}),
			"check the password",
		},
		{
			"too large",
			matrixFailure(messaging.ErrUploadFailed, &messaging.MatrixError{Code: messaging.ErrCodeTooLarge, StatusCode: 413}),
			"upload size limit",
		},
		{
			"refresh failed without a matrix error",
			fmt.Errorf("messaging: refresh: %w: no refresh token held", messaging.ErrRefreshFailed),
			"could not be refreshed",
		},
		{
			"unrelated",
			errors.New("connection refused"),
			"",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := errorHint(test.err)
			if test.want == "" {
				if got != "" {
					t.Errorf("errorHint = %q, want none", got)
				}
				return
			}
			if !strings.Contains(got, test.want) {
				t.Errorf("errorHint = %q, want it to contain %q", got, test.want)
			}
		})
	}
}
