// Package notify carries asynchronous engine notifications to whoever is listening.
package notify

import (
	"sync"

	"macroreel/internal/macro"
)

// CaptureState is the payload of a capture status notification.
type CaptureState string

const (
	RecordingStarted CaptureState = "recording-started"
	RecordingStopped CaptureState = "recording-stopped"
)

// Observer receives engine notifications. Implementations must not block:
// calls arrive on the engines' worker and listener goroutines.
type Observer interface {
	CaptureStatus(state CaptureState)
	CaptureEvent(ev macro.InputEvent, keyCount, pointerCount uint64)
	CaptureError(err error)
	AutoClickTick(count uint64)
	AutoClickDone(count uint64)
	PlaybackDone(result macro.PlaybackResult)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) CaptureStatus(CaptureState)                    {}
func (Nop) CaptureEvent(macro.InputEvent, uint64, uint64) {}
func (Nop) CaptureError(error)                            {}
func (Nop) AutoClickTick(uint64)                          {}
func (Nop) AutoClickDone(uint64)                          {}
func (Nop) PlaybackDone(macro.PlaybackResult)             {}

// Funcs is an Observer built from optional callbacks. Nil fields are skipped.
type Funcs struct {
	OnCaptureStatus func(CaptureState)
	OnCaptureEvent  func(ev macro.InputEvent, keyCount, pointerCount uint64)
	OnCaptureError  func(error)
	OnAutoClickTick func(uint64)
	OnAutoClickDone func(uint64)
	OnPlaybackDone  func(macro.PlaybackResult)
}

func (f Funcs) CaptureStatus(s CaptureState) {
	if f.OnCaptureStatus != nil {
		f.OnCaptureStatus(s)
	}
}

func (f Funcs) CaptureEvent(ev macro.InputEvent, keyCount, pointerCount uint64) {
	if f.OnCaptureEvent != nil {
		f.OnCaptureEvent(ev, keyCount, pointerCount)
	}
}

func (f Funcs) CaptureError(err error) {
	if f.OnCaptureError != nil {
		f.OnCaptureError(err)
	}
}

func (f Funcs) AutoClickTick(n uint64) {
	if f.OnAutoClickTick != nil {
		f.OnAutoClickTick(n)
	}
}

func (f Funcs) AutoClickDone(n uint64) {
	if f.OnAutoClickDone != nil {
		f.OnAutoClickDone(n)
	}
}

func (f Funcs) PlaybackDone(r macro.PlaybackResult) {
	if f.OnPlaybackDone != nil {
		f.OnPlaybackDone(r)
	}
}

// Hub fans notifications out to its subscribers. With no subscribers every
// notification is dropped.
type Hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]Observer
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]Observer)}
}

// Subscribe adds o and returns a function that removes it.
func (h *Hub) Subscribe(o Observer) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = o
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) each(fn func(Observer)) {
	h.mu.RLock()
	subs := make([]Observer, 0, len(h.subs))
	for _, o := range h.subs {
		subs = append(subs, o)
	}
	h.mu.RUnlock()

	for _, o := range subs {
		fn(o)
	}
}

func (h *Hub) CaptureStatus(s CaptureState) {
	h.each(func(o Observer) { o.CaptureStatus(s) })
}

func (h *Hub) CaptureEvent(ev macro.InputEvent, keyCount, pointerCount uint64) {
	h.each(func(o Observer) { o.CaptureEvent(ev, keyCount, pointerCount) })
}

func (h *Hub) CaptureError(err error) {
	h.each(func(o Observer) { o.CaptureError(err) })
}

func (h *Hub) AutoClickTick(n uint64) {
	h.each(func(o Observer) { o.AutoClickTick(n) })
}

func (h *Hub) AutoClickDone(n uint64) {
	h.each(func(o Observer) { o.AutoClickDone(n) })
}

func (h *Hub) PlaybackDone(r macro.PlaybackResult) {
	h.each(func(o Observer) { o.PlaybackDone(r) })
}

var (
	_ Observer = Nop{}
	_ Observer = Funcs{}
	_ Observer = (*Hub)(nil)
)
