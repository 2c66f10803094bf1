package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	macroerrors "macroreel/internal/errors"
	"macroreel/internal/input"
	"macroreel/internal/input/inputtest"
	"macroreel/internal/keys"
	"macroreel/internal/macro"
	"macroreel/internal/notify/notifytest"
)

func newTestRecorder(t *testing.T, opts Options) (*Recorder, *inputtest.Hook) {
	t.Helper()
	hook := inputtest.NewHook()
	opts.Hook = hook
	r := New(opts)
	t.Cleanup(func() {
		r.Close()
		hook.Close()
	})
	return r, hook
}

func kinds(events []macro.InputEvent) []macro.EventKind {
	out := make([]macro.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestCtrlACapture(t *testing.T) {
	r, hook := newTestRecorder(t, Options{})
	require.NoError(t, r.Start(nil))

	hook.Emit(inputtest.KeyPress(keys.Ctrl))
	hook.Emit(inputtest.KeyPress(keys.A))
	hook.Emit(inputtest.KeyRelease(keys.A))
	hook.Emit(inputtest.KeyRelease(keys.Ctrl))

	events, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, []macro.EventKind{
		macro.KeyDown("Ctrl"),
		macro.KeyDown("Ctrl+A"),
		macro.KeyUp("Ctrl+A"),
		macro.KeyUp("Ctrl"),
	}, kinds(events))
}

func TestPointerClassification(t *testing.T) {
	r, hook := newTestRecorder(t, Options{})
	require.NoError(t, r.Start(nil))

	hook.Emit(input.RawEvent{Type: input.Move, X: 100, Y: 200})
	hook.Emit(input.RawEvent{Type: input.ButtonPress, Button: macro.ButtonRight})
	hook.Emit(input.RawEvent{Type: input.ButtonRelease, Button: macro.ButtonRight})
	hook.Emit(input.RawEvent{Type: input.Wheel, DeltaY: -2})

	events, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, []macro.EventKind{
		macro.PointerMove(100, 200),
		macro.ButtonDown(macro.ButtonRight),
		macro.ButtonUp(macro.ButtonRight),
		macro.Scroll(0, -2),
	}, kinds(events))
}

func TestSingleInstance(t *testing.T) {
	r, _ := newTestRecorder(t, Options{})

	_, err := r.Stop()
	require.True(t, macroerrors.Is(err, macroerrors.ErrNotActive))

	require.NoError(t, r.Start(nil))
	err = r.Start(nil)
	require.True(t, macroerrors.Is(err, macroerrors.ErrAlreadyActive))
	require.True(t, r.Active())

	_, err = r.Stop()
	require.NoError(t, err)
	require.False(t, r.Active())
}

func TestListenerInstalledOnce(t *testing.T) {
	r, hook := newTestRecorder(t, Options{})
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Start(nil))
		_, err := r.Stop()
		require.NoError(t, err)
	}
	r.EnsureListener()
	require.True(t, hook.WaitInstalled(time.Second))
	require.Equal(t, 1, hook.Runs())
}

func TestIdleEventsDroppedAndModifiersReset(t *testing.T) {
	r, hook := newTestRecorder(t, Options{})
	r.EnsureListener()

	hook.Emit(inputtest.KeyPress(keys.Ctrl))
	hook.Emit(input.RawEvent{Type: input.Move, X: 1, Y: 1})

	require.NoError(t, r.Start(nil))
	hook.Emit(inputtest.KeyPress(keys.A))
	events, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, []macro.EventKind{macro.KeyDown("A")}, kinds(events))
}

func TestStartClearsPreviousSession(t *testing.T) {
	r, hook := newTestRecorder(t, Options{})
	require.NoError(t, r.Start(nil))
	hook.Emit(inputtest.KeyPress(keys.B))
	require.Equal(t, 1, r.Buffered())
	first, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, 1, r.Buffered(), "last session stays buffered after stop")

	// the handed-off copy is independent of the kept buffer
	first[0].OffsetMS = 999

	require.NoError(t, r.Start(nil))
	require.Equal(t, 0, r.Buffered())
	hook.Emit(inputtest.KeyPress(keys.C))
	events, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, []macro.EventKind{macro.KeyDown("C")}, kinds(events))
}

func TestPunctuationLabels(t *testing.T) {
	r, hook := newTestRecorder(t, Options{})
	require.NoError(t, r.Start(nil))

	for _, code := range []uint16{0x0033, 0x0034, 0x0035, 0x000C, 0x002B} {
		hook.Emit(input.RawEvent{Type: input.KeyPress, Key: input.KeyFromUiohook(code), Code: code})
	}
	hook.Emit(inputtest.KeyPress(keys.Shift))
	hook.Emit(inputtest.KeyPress(keys.Slash))
	hook.Emit(inputtest.KeyRelease(keys.Slash))

	events, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, []macro.EventKind{
		macro.KeyDown(","),
		macro.KeyDown("."),
		macro.KeyDown("/"),
		macro.KeyDown("-"),
		macro.KeyDown(`\`),
		macro.KeyDown("Shift"),
		macro.KeyDown("Shift+/"),
		macro.KeyUp("Shift+/"),
	}, kinds(events))
}

func TestOffsetsNonDecreasingUnderConcurrency(t *testing.T) {
	r, hook := newTestRecorder(t, Options{})
	require.NoError(t, r.Start(nil))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hook.Emit(input.RawEvent{Type: input.Move, X: int32(g), Y: int32(i)})
				if i%10 == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}(g)
	}
	wg.Wait()

	events, err := r.Stop()
	require.NoError(t, err)
	require.Len(t, events, 200)
	require.NoError(t, macro.Validate(events))
}

func TestObserverReceivesEventsWithCounters(t *testing.T) {
	obs := &notifytest.Recorder{}
	r, hook := newTestRecorder(t, Options{})
	require.NoError(t, r.Start(obs))

	hook.Emit(inputtest.KeyPress(keys.A))
	hook.Emit(input.RawEvent{Type: input.Move, X: 5, Y: 5})
	hook.Emit(inputtest.KeyRelease(keys.A))
	_, err := r.Stop()
	require.NoError(t, err)

	hook.Emit(inputtest.KeyPress(keys.B))

	got := obs.Events()
	require.Len(t, got, 3)
	require.Equal(t, uint64(1), got[0].KeyCount)
	require.Equal(t, uint64(0), got[0].PointerCount)
	require.Equal(t, uint64(1), got[1].PointerCount)
	require.Equal(t, uint64(2), got[2].KeyCount)

	keyCount, pointerCount := r.Counts()
	require.Equal(t, uint64(2), keyCount)
	require.Equal(t, uint64(1), pointerCount)
}

func TestListenerFailurePublishesCaptureError(t *testing.T) {
	obs := &notifytest.Recorder{}
	hook := inputtest.NewHook()
	hook.Err = errors.New("accessibility permission denied")
	r := New(Options{Hook: hook})

	require.NoError(t, r.Start(obs))
	require.True(t, notifytest.WaitFor(time.Second, func() bool { return len(obs.Errors()) == 1 }))
	require.True(t, macroerrors.Is(obs.Errors()[0], macroerrors.ErrCaptureInstallFailed))

	// the next session installs again and reports again
	_, err := r.Stop()
	require.NoError(t, err)
	require.NoError(t, r.Start(obs))
	require.True(t, notifytest.WaitFor(time.Second, func() bool { return len(obs.Errors()) == 2 }))
	require.Equal(t, 2, hook.Runs())
}

func TestEarlyInstallFailureReachesLaterSession(t *testing.T) {
	obs := &notifytest.Recorder{}
	hook := inputtest.NewHook()
	hook.Err = errors.New("no display")
	r := New(Options{Hook: hook})

	// installed up front for a hotkey, with nobody listening
	r.EnsureListener()
	require.True(t, notifytest.WaitFor(time.Second, func() bool { return hook.Runs() == 1 }))

	require.NoError(t, r.Start(obs))
	require.True(t, notifytest.WaitFor(time.Second, func() bool { return len(obs.Errors()) == 1 }))
	time.Sleep(20 * time.Millisecond)
	require.Len(t, obs.Errors(), 1)
	require.True(t, macroerrors.Is(obs.Errors()[0], macroerrors.ErrCaptureInstallFailed))
}

func TestRawTapSeesKeysWhileIdle(t *testing.T) {
	var mu sync.Mutex
	var tapped []keys.Key
	r, hook := newTestRecorder(t, Options{RawTap: func(ev input.RawEvent) {
		mu.Lock()
		tapped = append(tapped, ev.Key)
		mu.Unlock()
	}})
	r.EnsureListener()

	hook.Emit(inputtest.KeyPress(keys.Esc))
	hook.Emit(input.RawEvent{Type: input.Move})
	hook.Emit(inputtest.KeyRelease(keys.Esc))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []keys.Key{keys.Esc, keys.Esc}, tapped)
}

func TestSamplerOwnsKeys(t *testing.T) {
	sampler := &inputtest.Sampler{}
	r, hook := newTestRecorder(t, Options{Sampler: sampler})
	require.NoError(t, r.Start(nil))

	hook.Emit(inputtest.KeyPress(keys.Z))
	hook.Emit(input.RawEvent{Type: input.Move, X: 3, Y: 4})

	sampler.Set(keys.Shift)
	require.True(t, notifytest.WaitFor(time.Second, func() bool { return r.Buffered() == 2 }))
	sampler.Set(keys.Shift, keys.Q)
	require.True(t, notifytest.WaitFor(time.Second, func() bool { return r.Buffered() == 3 }))
	sampler.Set()
	require.True(t, notifytest.WaitFor(time.Second, func() bool { return r.Buffered() == 5 }))

	events, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, []macro.EventKind{
		macro.PointerMove(3, 4),
		macro.KeyDown("Shift"),
		macro.KeyDown("Shift+Q"),
		macro.KeyUp("Shift"),
		macro.KeyUp("Q"),
	}, kinds(events))
}
