// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// fatalHelper is the subset of testing.TB the Require helpers use.
type fatalHelper interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if ch
// is closed or nothing arrives within timeout. context describes what
// the test was waiting for; a leading format string is expanded.
//
//	path := testutil.RequireReceive(t, appended, 5*time.Second, "append %d", n)
func RequireReceive[T any](t fatalHelper, ch <-chan T, timeout time.Duration, context ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock bounds a hung test
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed before a value arrived", describe(context))
		}
		return value
	case <-timer.C:
		t.Fatalf("%s: nothing received within %v", describe(context), timeout)
	}
	panic("unreachable")
}

// RequireClosed waits for ch to close or deliver, failing the test
// after timeout.
func RequireClosed(t fatalHelper, ch <-chan struct{}, timeout time.Duration, context ...any) {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock bounds a hung test
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: channel still open after %v", describe(context), timeout)
	}
}

func describe(context []any) string {
	switch {
	case len(context) == 0:
		return "waiting on channel"
	case len(context) == 1:
		return fmt.Sprint(context[0])
	}
	if format, ok := context[0].(string); ok {
		return fmt.Sprintf(format, context[1:]...)
	}
	return fmt.Sprint(context...)
}
