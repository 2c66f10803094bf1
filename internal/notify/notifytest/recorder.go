// Package notifytest records notifications for assertions.
package notifytest

import (
	"sync"
	"time"

	"macroreel/internal/macro"
	"macroreel/internal/notify"
)

// CapturedEvent is one capture event notification.
type CapturedEvent struct {
	Event        macro.InputEvent
	KeyCount     uint64
	PointerCount uint64
}

// Recorder is a notify.Observer that stores everything it receives.
type Recorder struct {
	mu       sync.Mutex
	statuses []notify.CaptureState
	events   []CapturedEvent
	errs     []error
	ticks    []uint64
	dones    []uint64
	results  []macro.PlaybackResult
}

func (r *Recorder) CaptureStatus(s notify.CaptureState) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
}

func (r *Recorder) CaptureEvent(ev macro.InputEvent, keyCount, pointerCount uint64) {
	r.mu.Lock()
	r.events = append(r.events, CapturedEvent{ev, keyCount, pointerCount})
	r.mu.Unlock()
}

func (r *Recorder) CaptureError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *Recorder) AutoClickTick(n uint64) {
	r.mu.Lock()
	r.ticks = append(r.ticks, n)
	r.mu.Unlock()
}

func (r *Recorder) AutoClickDone(n uint64) {
	r.mu.Lock()
	r.dones = append(r.dones, n)
	r.mu.Unlock()
}

func (r *Recorder) PlaybackDone(res macro.PlaybackResult) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *Recorder) Statuses() []notify.CaptureState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.CaptureState(nil), r.statuses...)
}

func (r *Recorder) Events() []CapturedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CapturedEvent(nil), r.events...)
}

func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *Recorder) Ticks() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.ticks...)
}

func (r *Recorder) Dones() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.dones...)
}

func (r *Recorder) Results() []macro.PlaybackResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]macro.PlaybackResult(nil), r.results...)
}

// WaitFor polls cond until it holds or timeout expires.
func WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

var _ notify.Observer = (*Recorder)(nil)
