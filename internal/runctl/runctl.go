// Package runctl is the cancel-flag-plus-join handle shared by the background engines.
package runctl

import (
	"math"
	"sync/atomic"
	"time"
)

// Slice is the longest uninterrupted sleep a worker takes before rechecking its cancel flag.
const Slice = 5 * time.Millisecond

// MaxMillis is the longest wait, in milliseconds, a time.Duration can hold.
const MaxMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

// Millis converts ms to a Duration, saturating at MaxMillis.
func Millis(ms uint64) time.Duration {
	return time.Duration(min(ms, MaxMillis)) * time.Millisecond
}

// Handle owns one worker goroutine.
type Handle struct {
	cancel atomic.Bool
	done   chan struct{}
}

// Spawn starts fn on its own goroutine. The worker observes cancellation
// through the handle it receives.
func Spawn(fn func(h *Handle)) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		fn(h)
	}()
	return h
}

// Cancel raises the cancel flag. It does not wait.
func (h *Handle) Cancel() { h.cancel.Store(true) }

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool { return h.cancel.Load() }

// Join blocks until the worker has returned.
func (h *Handle) Join() { <-h.done }

// Stop cancels and joins.
func (h *Handle) Stop() {
	h.Cancel()
	h.Join()
}

// Done is closed when the worker returns.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Finished reports whether the worker has already returned.
func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Sleep waits for d in slices of at most Slice, returning false as soon as
// the handle is cancelled. The total wait is measured against a deadline so
// slicing does not stretch it.
func (h *Handle) Sleep(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if h.Cancelled() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		time.Sleep(min(remaining, Slice))
	}
}
