// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/matrixwire/lib/envelope"
	"github.com/bureau-foundation/matrixwire/lib/wire"
)

var (
	// ErrNotAuthenticated is returned by authenticated operations when
	// the client holds no access token.
	ErrNotAuthenticated = errors.New("messaging: not authenticated")

	// ErrRefreshFailed is returned when the access token could not be
	// renewed. The stale token set is left in place; the caller must
	// log in again.
	ErrRefreshFailed = errors.New("messaging: token refresh failed")

	// ErrLoginFailed is returned when login did not yield an access token.
	ErrLoginFailed = errors.New("messaging: login failed")

	// ErrDiscoveryFailed is returned by Discover when the well-known
	// document is missing or has no homeserver base URL.
	ErrDiscoveryFailed = errors.New("messaging: homeserver discovery failed")

	// ErrCreateRoomFailed is returned when room creation did not yield
	// a room ID.
	ErrCreateRoomFailed = errors.New("messaging: create room failed")

	// ErrSendMessageFailed is returned when sending did not yield an
	// event ID.
	ErrSendMessageFailed = errors.New("messaging: send message failed")

	// ErrUploadFailed is returned when a media upload did not yield a
	// content URI.
	ErrUploadFailed = errors.New("messaging: media upload failed")

	// ErrNoMasterUser is returned by SendDMToMaster before
	// SetMasterUserID has been called.
	ErrNoMasterUser = errors.New("messaging: no master user configured")
)

// MatrixError represents a structured error response from the Matrix
// homeserver. When a failing response carries one, the returned error
// wraps it alongside the operation's sentinel:
//
//	var matrixErr *MatrixError
//	if errors.As(err, &matrixErr) {
//	    if matrixErr.Code == ErrCodeUnknownToken { ... }
//	}
type MatrixError struct {
	// Code is the Matrix error code (e.g., "M_FORBIDDEN", "M_UNKNOWN_TOKEN").
	Code string
	// Message is the human-readable error description from the server.
	Message string
	// StatusCode is the HTTP status code of the response, or 0 when the
	// status line was unreadable.
	StatusCode int
	// RetryAfterMs is the server's retry_after_ms hint for rate limits.
	RetryAfterMs uint64
}

func (e *MatrixError) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Matrix error codes the client and CLI act on.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeTooLarge      = "M_TOO_LARGE"
)

// IsMatrixError checks whether err is a *MatrixError with the given error code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}

// matrixErrorFrom returns the MatrixError carried by document, or nil
// when the document has no errcode.
func matrixErrorFrom(response *wire.Response, document *envelope.Document) *MatrixError {
	if document == nil || !document.Has("errcode") {
		return nil
	}
	return &MatrixError{
		Code:         document.String("", "errcode"),
		Message:      document.String("", "error"),
		StatusCode:   response.StatusCode(),
		RetryAfterMs: document.Uint(0, "retry_after_ms"),
	}
}

// responseFailure builds the error for a response that lacked the field
// an operation requires. It wraps sentinel, plus the MatrixError or
// parse error that explains the absence when there is one.
func responseFailure(sentinel error, operation, field string, response *wire.Response, document *envelope.Document, parseErr error) error {
	if matrixErr := matrixErrorFrom(response, document); matrixErr != nil {
		return fmt.Errorf("messaging: %s: %w: %w", operation, sentinel, matrixErr)
	}
	if parseErr != nil {
		return fmt.Errorf("messaging: %s: %w: %w", operation, sentinel, parseErr)
	}
	return fmt.Errorf("messaging: %s: %w: response has no %s (status %d)", operation, sentinel, field, response.StatusCode())
}
