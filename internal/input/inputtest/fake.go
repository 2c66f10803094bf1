// Package inputtest provides in-memory fakes of the input boundary for engine tests.
package inputtest

import (
	"sync"
	"sync/atomic"
	"time"

	"macroreel/internal/input"
	"macroreel/internal/keys"
	"macroreel/internal/macro"
)

// Hook is a Hook whose events are pushed by the test.
type Hook struct {
	// Err, when set, is returned from Run immediately.
	Err error

	mu     sync.Mutex
	emit   func(input.RawEvent)
	ready  chan struct{}
	closed chan struct{}
	once   sync.Once
	runs   atomic.Int32
}

// NewHook creates a fake hook.
func NewHook() *Hook {
	return &Hook{ready: make(chan struct{}), closed: make(chan struct{})}
}

// Run blocks until Close.
func (h *Hook) Run(emit func(input.RawEvent)) error {
	h.runs.Add(1)
	if h.Err != nil {
		return h.Err
	}
	h.mu.Lock()
	h.emit = emit
	h.mu.Unlock()
	h.once.Do(func() { close(h.ready) })
	<-h.closed
	return nil
}

// Runs reports how many times Run has been called.
func (h *Hook) Runs() int { return int(h.runs.Load()) }

// WaitInstalled blocks until Run has been entered or the timeout expires.
func (h *Hook) WaitInstalled(timeout time.Duration) bool {
	select {
	case <-h.ready:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Emit delivers ev synchronously through the installed callback.
// It waits for the listener to be installed first.
func (h *Hook) Emit(ev input.RawEvent) {
	<-h.ready
	h.mu.Lock()
	emit := h.emit
	h.mu.Unlock()
	emit(ev)
}

// Close releases Run.
func (h *Hook) Close() {
	select {
	case <-h.closed:
	default:
		close(h.closed)
	}
}

// KeyPress is a convenience for a key press event.
func KeyPress(k keys.Key) input.RawEvent {
	return input.RawEvent{Type: input.KeyPress, Key: k}
}

// KeyRelease is a convenience for a key release event.
func KeyRelease(k keys.Key) input.RawEvent {
	return input.RawEvent{Type: input.KeyRelease, Key: k}
}

// Call is one recorded synthesis operation.
type Call struct {
	Op     string // move, button, click, key, type, scroll
	At     time.Time
	X, Y   int32
	Button macro.Button
	Key    keys.Key
	Down   bool
	Text   string
	DX, DY int64
}

// Synth records every synthesis call.
type Synth struct {
	// Err, when set, is returned from every call after recording it.
	Err error

	mu    sync.Mutex
	calls []Call
}

// NewSynth creates a recording synthesizer.
func NewSynth() *Synth { return &Synth{} }

func (s *Synth) record(c Call) error {
	c.At = time.Now()
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	return s.Err
}

func (s *Synth) MoveTo(x, y int32) error { return s.record(Call{Op: "move", X: x, Y: y}) }

func (s *Synth) ButtonToggle(b macro.Button, down bool) error {
	return s.record(Call{Op: "button", Button: b, Down: down})
}

func (s *Synth) Click(b macro.Button) error { return s.record(Call{Op: "click", Button: b}) }

func (s *Synth) KeyToggle(k keys.Key, down bool) error {
	return s.record(Call{Op: "key", Key: k, Down: down})
}

func (s *Synth) TypeText(text string) error { return s.record(Call{Op: "type", Text: text}) }

func (s *Synth) Scroll(dx, dy int64) error { return s.record(Call{Op: "scroll", DX: dx, DY: dy}) }

// Calls returns a copy of the recorded calls.
func (s *Synth) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns the number of recorded calls with the given op.
func (s *Synth) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Sampler reports a key set controlled by the test.
type Sampler struct {
	mu      sync.Mutex
	pressed []keys.Key
}

// Set replaces the held keys.
func (s *Sampler) Set(held ...keys.Key) {
	s.mu.Lock()
	s.pressed = append([]keys.Key(nil), held...)
	s.mu.Unlock()
}

func (s *Sampler) Pressed() []keys.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]keys.Key(nil), s.pressed...)
}

var (
	_ input.Hook        = (*Hook)(nil)
	_ input.Synthesizer = (*Synth)(nil)
	_ input.KeySampler  = (*Sampler)(nil)
)
