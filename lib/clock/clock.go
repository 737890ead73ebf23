// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the two time operations the Matrix engine performs:
// reading the current instant (token expiry, transaction IDs, the
// response read budget) and pausing between connection polls.
//
// Production code injects Real(); tests inject Fake() or
// FakeAutoAdvance() so expiry boundaries and read-loop timeouts can be
// exercised to the millisecond without waiting on the wall clock.
type Clock interface {
	// Now returns the current time. Values returned by Real carry a
	// monotonic reading, so differences between them are immune to
	// wall-clock adjustments.
	Now() time.Time

	// Sleep pauses the calling goroutine for at least d. If d <= 0,
	// Sleep returns immediately.
	Sleep(d time.Duration)
}

// Until returns the duration from c.Now() until t. Negative when t is
// in the past.
func Until(c Clock, t time.Time) time.Duration {
	return t.Sub(c.Now())
}
