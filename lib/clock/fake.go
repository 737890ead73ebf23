// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance or Set is called. Sleep blocks until the clock is
// advanced past the sleeper's deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeAutoAdvance returns a FakeClock whose Sleep moves the clock
// forward by the requested duration and returns immediately. Use it
// for single-goroutine code that polls in a loop (the response read
// loop): every poll interval is accounted for exactly, and a timeout
// budget is exhausted deterministically without real waiting.
func FakeAutoAdvance(initial time.Time) *FakeClock {
	clock := Fake(initial)
	clock.autoAdvance = true
	return clock
}

// FakeClock is a deterministic Clock for testing.
type FakeClock struct {
	mu          sync.Mutex
	changed     *sync.Cond
	current     time.Time
	autoAdvance bool
	sleepers    int
	slept       time.Duration
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep either advances the clock by d (auto-advance mode) or blocks
// until another goroutine advances the clock by at least d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.slept += d
	if c.autoAdvance {
		c.current = c.current.Add(d)
		c.changed.Broadcast()
		return
	}

	deadline := c.current.Add(d)
	c.sleepers++
	c.changed.Broadcast()
	for c.current.Before(deadline) {
		c.changed.Wait()
	}
	c.sleepers--
}

// Advance moves the clock forward by d and wakes every sleeper whose
// deadline has been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	c.changed.Broadcast()
}

// Set moves the clock to t. Moving backwards is allowed; sleepers are
// woken only once the clock reaches their deadline.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
	c.changed.Broadcast()
}

// WaitForSleepers blocks until at least n goroutines are blocked in
// Sleep. This removes the race between a goroutine starting to sleep
// and the test advancing the clock:
//
//	go func() { fakeClock.Sleep(5 * time.Second) }()
//	fakeClock.WaitForSleepers(1)
//	fakeClock.Advance(5 * time.Second)
func (c *FakeClock) WaitForSleepers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.sleepers < n {
		c.changed.Wait()
	}
}

// Slept returns the total duration requested through Sleep since the
// clock was created. Useful for asserting how many poll intervals a
// loop waited.
func (c *FakeClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}
