package keys

import (
	"strings"
	"sync"
	"unicode"
)

// Modifiers is a snapshot of the held modifier keys.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

// prefixes is the composition order.
var prefixes = [...]struct {
	key  Key
	name string
}{
	{Ctrl, "Ctrl"},
	{Shift, "Shift"},
	{Alt, "Alt"},
	{Meta, "Meta"},
}

func (m Modifiers) held(k Key) bool {
	switch k {
	case Ctrl:
		return m.Ctrl
	case Shift:
		return m.Shift
	case Alt:
		return m.Alt
	case Meta:
		return m.Meta
	}
	return false
}

func (m *Modifiers) set(k Key, down bool) {
	switch k {
	case Ctrl:
		m.Ctrl = down
	case Shift:
		m.Shift = down
	case Alt:
		m.Alt = down
	case Meta:
		m.Meta = down
	}
}

// Compose prefixes name with the held modifiers in Ctrl, Shift, Alt, Meta
// order. A modifier key is never prefixed with itself.
func Compose(m Modifiers, k Key, name string) string {
	var b strings.Builder
	for _, p := range prefixes {
		if p.key == k || !m.held(p.key) {
			continue
		}
		b.WriteString(p.name)
		b.WriteByte('+')
	}
	b.WriteString(name)
	return b.String()
}

// ModifierState tracks which modifiers are held during a capture session.
// Only the modifier keys' own press and release change it.
type ModifierState struct {
	mu sync.Mutex
	m  Modifiers
}

// Label records a key transition and returns its composite label. On press
// the modifier state is updated before composing, so "Ctrl" then "A" yields
// "Ctrl+A". On release the label is composed with the still-held state and
// the modifier is cleared afterwards.
//
// hint is a platform-supplied printable name. It wins over the canonical
// table when it is non-empty after trimming and contains only graphic runes.
func (s *ModifierState) Label(k Key, hint string, down bool) string {
	name := displayName(k, hint)

	s.mu.Lock()
	defer s.mu.Unlock()

	if down {
		s.m.set(k, true)
		return Compose(s.m, k, name)
	}
	label := Compose(s.m, k, name)
	s.m.set(k, false)
	return label
}

// Snapshot returns the currently held modifiers.
func (s *ModifierState) Snapshot() Modifiers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m
}

// Reset releases every modifier.
func (s *ModifierState) Reset() {
	s.mu.Lock()
	s.m = Modifiers{}
	s.mu.Unlock()
}

func displayName(k Key, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return Name(k)
	}
	for _, r := range hint {
		if !unicode.IsGraphic(r) || unicode.IsSpace(r) {
			return Name(k)
		}
	}
	return hint
}

// SplitLabel separates a composite label into its modifier prefixes and the
// final key token. Only the four modifier names are treated as prefixes, so
// labels such as "NumPad+" and "Ctrl+NumPad+" keep their token intact.
func SplitLabel(label string) (mods []Key, token string) {
	rest := strings.TrimSpace(label)
	for {
		matched := false
		for _, p := range prefixes {
			prefix := p.name + "+"
			if len(rest) > len(prefix) && strings.EqualFold(rest[:len(prefix)], prefix) {
				mods = append(mods, p.key)
				rest = rest[len(prefix):]
				matched = true
				break
			}
		}
		if !matched {
			return mods, strings.TrimSpace(rest)
		}
	}
}

// SynthKey resolves the final token of a composite label to a key that can
// be synthesized. The token is returned either way so callers can fall back
// to typing it as text.
func SynthKey(label string) (Key, string, bool) {
	_, token := SplitLabel(label)
	k, ok := Parse(token)
	return k, token, ok
}
