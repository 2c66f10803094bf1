// Package recorder captures global input into a timestamped event buffer.
package recorder

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	macroerrors "macroreel/internal/errors"
	"macroreel/internal/input"
	"macroreel/internal/keys"
	"macroreel/internal/macro"
	"macroreel/internal/notify"
)

const (
	sampleInterval = 3 * time.Millisecond
	idleInterval   = 8 * time.Millisecond
)

// Options configures a Recorder.
type Options struct {
	Hook input.Hook
	// Sampler, when set, owns keyboard input: key events from Hook are
	// dropped while capturing and keys are polled instead.
	Sampler input.KeySampler
	// RawTap sees every key event from Hook, whether or not capture is
	// active. It runs on the listener goroutine and must not block.
	RawTap func(input.RawEvent)
	Logger *slog.Logger
}

// Recorder is the capture pipeline. The listener is installed on first use
// and runs for the lifetime of the process; capture only toggles whether its
// events are kept. A listener that fails is installed again by the next
// Start or EnsureListener.
type Recorder struct {
	hook    input.Hook
	sampler input.KeySampler
	rawTap  func(input.RawEvent)
	logger  *slog.Logger

	lifecycle sync.Mutex
	active    atomic.Bool

	// listenMu orders listener failure against observer attachment, so a
	// failed install is reported to exactly one capture session.
	listenMu    sync.Mutex
	listening   bool
	samplerOnce sync.Once
	closed      chan struct{}
	closeOnce   sync.Once

	bufMu    sync.Mutex
	buffer   []macro.InputEvent
	epoch    time.Time
	hasEpoch bool

	mods keys.ModifierState

	obsMu    sync.RWMutex
	observer notify.Observer

	keyCount     atomic.Uint64
	pointerCount atomic.Uint64
}

// New creates a recorder. The listener is not installed until Start or
// EnsureListener.
func New(opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		hook:    opts.Hook,
		sampler: opts.Sampler,
		rawTap:  opts.RawTap,
		logger:  logger.With("component", "recorder"),
		closed:  make(chan struct{}),
	}
}

// Start begins a capture session. The buffer, counters and modifier state
// are reset and the epoch is taken now. A nil observer is allowed.
//
// Start does not fail when the listener cannot be installed: the failure
// arrives as a CaptureError on observer, also when an earlier install
// attempt failed while no session was listening.
func (r *Recorder) Start(observer notify.Observer) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.active.Load() {
		return macroerrors.NewAlreadyActive("recording already in progress")
	}

	r.bufMu.Lock()
	r.buffer = nil
	r.epoch = time.Now()
	r.hasEpoch = true
	r.bufMu.Unlock()

	r.keyCount.Store(0)
	r.pointerCount.Store(0)
	r.mods.Reset()
	r.active.Store(true)

	r.listenMu.Lock()
	r.setObserver(observer)
	r.installLocked()
	r.listenMu.Unlock()
	r.startSampler()

	r.logger.Info("capture started")
	return nil
}

// Stop ends the session and hands off a copy of the captured events. The
// buffer is kept, so Buffered reports the last session until the next Start.
// The listener keeps running.
func (r *Recorder) Stop() ([]macro.InputEvent, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if !r.active.Load() {
		return nil, macroerrors.NewNotActive("no active recording")
	}

	r.active.Store(false)
	r.listenMu.Lock()
	r.setObserver(nil)
	r.listenMu.Unlock()

	r.bufMu.Lock()
	r.hasEpoch = false
	events := macro.Clone(r.buffer)
	r.bufMu.Unlock()

	r.mods.Reset()
	r.logger.Info("capture stopped", "events", len(events))
	return events, nil
}

// Active reports whether a capture session is running.
func (r *Recorder) Active() bool {
	return r.active.Load()
}

// Buffered reports how many events the current or last session holds.
func (r *Recorder) Buffered() int {
	r.bufMu.Lock()
	defer r.bufMu.Unlock()
	return len(r.buffer)
}

// Counts returns the running key and pointer event counters.
func (r *Recorder) Counts() (keyCount, pointerCount uint64) {
	return r.keyCount.Load(), r.pointerCount.Load()
}

// EnsureListener installs the global listener, and the key sampler if one
// is configured, unless they are already running.
func (r *Recorder) EnsureListener() {
	r.listenMu.Lock()
	r.installLocked()
	r.listenMu.Unlock()
	r.startSampler()
}

func (r *Recorder) installLocked() {
	if r.hook == nil || r.listening {
		return
	}
	r.listening = true
	go r.listen()
}

func (r *Recorder) startSampler() {
	if r.sampler == nil {
		return
	}
	r.samplerOnce.Do(func() { go r.sample() })
}

// Close stops the key sampler goroutine. The native hook cannot be
// uninstalled and stays in place.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
}

func (r *Recorder) listen() {
	r.logger.Debug("installing global input listener")
	err := r.hook.Run(r.fromHook)

	r.listenMu.Lock()
	r.listening = false
	obs := r.currentObserver()
	r.listenMu.Unlock()

	if err == nil {
		return
	}
	r.logger.Error("global input listener failed", "error", err)
	if obs != nil {
		obs.CaptureError(macroerrors.NewCaptureInstallFailed(err))
	}
}

func (r *Recorder) fromHook(ev input.RawEvent) {
	if ev.IsKey() && r.rawTap != nil {
		r.rawTap(ev)
	}
	if ev.IsKey() && r.sampler != nil {
		return
	}
	r.dispatch(ev)
}

// sample polls the key sampler and feeds transitions through dispatch,
// presses before releases.
func (r *Recorder) sample() {
	held := map[keys.Key]bool{}
	for {
		select {
		case <-r.closed:
			return
		default:
		}

		if !r.active.Load() {
			clear(held)
			time.Sleep(idleInterval)
			continue
		}

		now := r.sampler.Pressed()
		current := make(map[keys.Key]bool, len(now))
		for _, k := range now {
			current[k] = true
			if !held[k] {
				r.dispatch(input.RawEvent{Type: input.KeyPress, Key: k})
			}
		}
		var released []keys.Key
		for k := range held {
			if !current[k] {
				released = append(released, k)
			}
		}
		slices.Sort(released)
		for _, k := range released {
			r.dispatch(input.RawEvent{Type: input.KeyRelease, Key: k})
		}
		held = current
		time.Sleep(sampleInterval)
	}
}

func (r *Recorder) dispatch(ev input.RawEvent) {
	if !r.active.Load() {
		r.mods.Reset()
		return
	}

	var kind macro.EventKind
	isKey := false
	switch ev.Type {
	case input.KeyPress:
		kind = macro.KeyDown(r.mods.Label(ev.Key, ev.Name, true))
		isKey = true
	case input.KeyRelease:
		kind = macro.KeyUp(r.mods.Label(ev.Key, ev.Name, false))
		isKey = true
	case input.ButtonPress:
		kind = macro.ButtonDown(ev.Button)
	case input.ButtonRelease:
		kind = macro.ButtonUp(ev.Button)
	case input.Move:
		kind = macro.PointerMove(ev.X, ev.Y)
	case input.Wheel:
		kind = macro.Scroll(ev.DeltaX, ev.DeltaY)
	default:
		return
	}
	r.record(kind, isKey)
}

// record stamps and appends under the buffer lock so offsets stay
// non-decreasing when the hook and the sampler race.
func (r *Recorder) record(kind macro.EventKind, isKey bool) {
	r.bufMu.Lock()
	if !r.hasEpoch {
		r.bufMu.Unlock()
		return
	}
	ev := macro.InputEvent{
		OffsetMS: uint64(time.Since(r.epoch).Milliseconds()),
		Kind:     kind,
	}
	r.buffer = append(r.buffer, ev)
	r.bufMu.Unlock()

	var keyCount, pointerCount uint64
	if isKey {
		keyCount = r.keyCount.Add(1)
		pointerCount = r.pointerCount.Load()
	} else {
		pointerCount = r.pointerCount.Add(1)
		keyCount = r.keyCount.Load()
	}

	if obs := r.currentObserver(); obs != nil {
		obs.CaptureEvent(ev, keyCount, pointerCount)
	}
}

func (r *Recorder) setObserver(o notify.Observer) {
	r.obsMu.Lock()
	r.observer = o
	r.obsMu.Unlock()
}

func (r *Recorder) currentObserver() notify.Observer {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	return r.observer
}
