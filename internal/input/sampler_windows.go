//go:build windows

package input

import (
	"sort"

	"golang.org/x/sys/windows"

	"macroreel/internal/keys"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

// Sampler polls GetAsyncKeyState. The low-level keyboard hook drops events
// when another process holds focus with elevated rights, so keys are sampled
// instead while recording on Windows.
type Sampler struct {
	codes []uint16
}

// NewSampler creates a sampler over every virtual key with a known name.
func NewSampler() *Sampler {
	codes := make([]uint16, 0, len(windowsVKKeys))
	for vk := range windowsVKKeys {
		codes = append(codes, vk)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return &Sampler{codes: codes}
}

// Pressed returns the keys whose high state bit is set.
func (s *Sampler) Pressed() []keys.Key {
	var out []keys.Key
	seen := make(map[keys.Key]bool)
	for _, vk := range s.codes {
		state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
		if state&0x8000 == 0 {
			continue
		}
		k := windowsVKKeys[vk]
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// PlatformSampler returns the key sampler for this platform.
func PlatformSampler() KeySampler {
	return NewSampler()
}
