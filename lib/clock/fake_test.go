// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockSet(t *testing.T) {
	clock := Fake(epoch)
	target := epoch.Add(time.Hour)
	clock.Set(target)
	if got := clock.Now(); !got.Equal(target) {
		t.Fatalf("Now() after Set = %v, want %v", got, target)
	}
}

func TestFakeClockSleepBlocksUntilAdvance(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		clock.Sleep(3 * time.Second)
		close(done)
	}()

	clock.WaitForSleepers(1)
	clock.Advance(2 * time.Second)
	select {
	case <-done:
		t.Fatal("Sleep returned before its deadline")
	default:
	}

	clock.Advance(time.Second)
	testutil.RequireClosed(t, done, 5*time.Second, "sleeper should wake after deadline")
}

func TestFakeClockSleepNonPositive(t *testing.T) {
	clock := Fake(epoch)
	clock.Sleep(0)
	clock.Sleep(-time.Second)
	if got := clock.Slept(); got != 0 {
		t.Fatalf("Slept() = %v, want 0", got)
	}
}

func TestFakeAutoAdvance(t *testing.T) {
	clock := FakeAutoAdvance(epoch)
	clock.Sleep(10 * time.Millisecond)
	clock.Sleep(15 * time.Millisecond)

	want := epoch.Add(25 * time.Millisecond)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
	if got := clock.Slept(); got != 25*time.Millisecond {
		t.Fatalf("Slept() = %v, want 25ms", got)
	}
}

func TestUntil(t *testing.T) {
	clock := Fake(epoch)
	deadline := epoch.Add(90 * time.Second)
	if got := Until(clock, deadline); got != 90*time.Second {
		t.Fatalf("Until = %v, want 90s", got)
	}
	clock.Advance(2 * time.Minute)
	if got := Until(clock, deadline); got != -30*time.Second {
		t.Fatalf("Until after deadline = %v, want -30s", got)
	}
}
