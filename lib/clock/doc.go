// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for the Matrix
// engine.
//
// Token expiry is computed as issue time plus the server's
// expires_in_ms, and the refresh decision compares the current instant
// against that deadline with a ten second margin. The response read
// loop polls the connection on a fixed interval under an overall
// budget. Both are only testable at their boundaries when time is
// injected, so every struct that needs time holds a Clock field:
//
//	client := messaging.NewClient(messaging.ClientConfig{Clock: clock.Real(), ...})
//
// In tests:
//
//	c := clock.FakeAutoAdvance(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	client := messaging.NewClient(messaging.ClientConfig{Clock: c, ...})
//	c.Advance(590 * time.Second) // land exactly on the refresh boundary
//
// Fake blocks sleepers until Advance is called from another goroutine
// (see WaitForSleepers). FakeAutoAdvance never blocks: Sleep moves time
// forward by the requested amount, which suits the single-goroutine
// poll loop.
package clock
