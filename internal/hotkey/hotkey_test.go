package hotkey

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"macroreel/internal/input"
	"macroreel/internal/keys"
)

func waitCount(c *atomic.Int32, want int32) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Load() == want {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return c.Load() == want
}

func TestParse(t *testing.T) {
	parts, err := Parse("Ctrl+Shift+Esc")
	require.NoError(t, err)
	require.Equal(t, []keys.Key{keys.Ctrl, keys.Shift, keys.Esc}, parts)

	parts, err = Parse("alt+numpad+")
	require.NoError(t, err)
	require.Equal(t, []keys.Key{keys.Alt, keys.NumPadAdd}, parts)

	_, err = Parse("Ctrl+Hyper")
	require.Error(t, err)
}

func TestComboFiresOncePerPress(t *testing.T) {
	m := NewManager(nil)
	var fired atomic.Int32
	_, err := m.Register("Ctrl+Esc", func() { fired.Add(1) })
	require.NoError(t, err)

	m.Feed(input.RawEvent{Type: input.KeyPress, Key: keys.Esc})
	require.Equal(t, int32(0), fired.Load())

	m.Feed(input.RawEvent{Type: input.KeyPress, Key: keys.Ctrl})
	require.True(t, waitCount(&fired, 1))

	// key repeat
	m.Feed(input.RawEvent{Type: input.KeyPress, Key: keys.Esc})
	m.Feed(input.RawEvent{Type: input.KeyPress, Key: keys.Ctrl})
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())

	m.Feed(input.RawEvent{Type: input.KeyRelease, Key: keys.Esc})
	m.Feed(input.RawEvent{Type: input.KeyPress, Key: keys.Esc})
	require.True(t, waitCount(&fired, 2))
}

func TestFeedIgnoresPointerAndUnknown(t *testing.T) {
	m := NewManager(nil)
	var fired atomic.Int32
	_, err := m.Register("Esc", func() { fired.Add(1) })
	require.NoError(t, err)

	m.Feed(input.RawEvent{Type: input.ButtonPress})
	m.Feed(input.RawEvent{Type: input.KeyPress, Key: keys.Unknown})
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
}

func TestRegisterEmptyAndClear(t *testing.T) {
	m := NewManager(nil)
	id, err := m.Register("", func() {})
	require.NoError(t, err)
	require.Equal(t, -1, id)

	var fired atomic.Int32
	_, err = m.Register("F9", func() { fired.Add(1) })
	require.NoError(t, err)
	m.Clear()
	m.UpdateState(keys.F9, true)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
}
