// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects Real(); tests inject a *Fake with deterministic time
// control. The worker host's execution deadline is the main consumer:
// its timeout tests advance a fake clock instead of sleeping.
package clock

import (
	"sync"
	"time"
)

// Clock provides the subset of the time package the sandbox core
// needs. Any production code that would call time.Now, time.After or
// time.AfterFunc takes a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d
	// elapses.
	After(d time.Duration) <-chan time.Time

	// AfterFunc waits for d, then calls f in its own goroutine.
	// The returned stop function cancels the pending call; it
	// reports whether the call was cancelled before firing.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	timer := time.AfterFunc(d, f)
	return timer.Stop
}

// Fake is a manually advanced Clock. Zero value is not usable; create
// with NewFake.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
	fn       func()
	stopped  bool
}

// NewFake returns a Fake clock starting at a fixed, arbitrary epoch.
func NewFake() *Fake {
	return &Fake{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that fires when the fake clock is advanced
// past the deadline.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{deadline: f.now.Add(d), ch: make(chan time.Time, 1)}
	f.waiters = append(f.waiters, w)
	return w.ch
}

// AfterFunc schedules f to run when the clock is advanced past d.
// Unlike the real clock, f runs synchronously inside Advance, which
// keeps tests deterministic.
func (f *Fake) AfterFunc(d time.Duration, fn func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{deadline: f.now.Add(d), fn: fn}
	f.waiters = append(f.waiters, w)
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		was := w.stopped
		w.stopped = true
		return !was
	}
}

// Advance moves the fake clock forward, firing any waiters whose
// deadline has passed.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	var due []*fakeWaiter
	var remaining []*fakeWaiter
	for _, w := range f.waiters {
		if w.stopped {
			continue
		}
		if !w.deadline.After(now) {
			w.stopped = true
			due = append(due, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
	f.mu.Unlock()

	for _, w := range due {
		if w.ch != nil {
			w.ch <- now
		}
		if w.fn != nil {
			w.fn()
		}
	}
}
