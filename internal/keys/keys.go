// Package keys holds the key-name tables shared by capture and playback.
//
// Capture turns a platform key into a canonical name and prefixes the held
// modifiers ("Ctrl+Shift+A"). Playback goes the other way: it takes the final
// token of such a label and looks up a key it can synthesize.
package keys

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Key is a platform-independent key identity.
type Key uint16

const (
	Unknown Key = iota

	Backspace
	Tab
	Enter
	Esc
	Space
	Ctrl
	Shift
	Alt
	Meta
	CapsLock
	Home
	End
	PageUp
	PageDown
	Insert
	Delete
	Left
	Right
	Up
	Down
	Fn

	Num0
	Num1
	Num2
	Num3
	Num4
	Num5
	Num6
	Num7
	Num8
	Num9

	A
	B
	C
	D
	E
	F
	G
	H
	I
	J
	K
	L
	M
	N
	O
	P
	Q
	R
	S
	T
	U
	V
	W
	X
	Y
	Z

	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12

	NumPad0
	NumPad1
	NumPad2
	NumPad3
	NumPad4
	NumPad5
	NumPad6
	NumPad7
	NumPad8
	NumPad9
	NumPadAdd
	NumPadSubtract
	NumPadMultiply
	NumPadDivide

	Comma
	Period
	Slash
	Minus
	Equal
	LeftBracket
	RightBracket
	Backslash
	Semicolon
	Quote
	Grave

	maxKey
)

var names = [maxKey]string{
	Unknown:        "Unknown",
	Backspace:      "Backspace",
	Tab:            "Tab",
	Enter:          "Enter",
	Esc:            "Esc",
	Space:          "Space",
	Ctrl:           "Ctrl",
	Shift:          "Shift",
	Alt:            "Alt",
	Meta:           "Meta",
	CapsLock:       "CapsLock",
	Home:           "Home",
	End:            "End",
	PageUp:         "PageUp",
	PageDown:       "PageDown",
	Insert:         "Insert",
	Delete:         "Delete",
	Left:           "Left",
	Right:          "Right",
	Up:             "Up",
	Down:           "Down",
	Fn:             "Fn",
	NumPadAdd:      "NumPad+",
	NumPadSubtract: "NumPad-",
	NumPadMultiply: "NumPad*",
	NumPadDivide:   "NumPad/",
	Comma:          ",",
	Period:         ".",
	Slash:          "/",
	Minus:          "-",
	Equal:          "=",
	LeftBracket:    "[",
	RightBracket:   "]",
	Backslash:      `\`,
	Semicolon:      ";",
	Quote:          "'",
	Grave:          "`",
}

func init() {
	for i := Key(0); i < 10; i++ {
		names[Num0+i] = string(rune('0' + i))
		names[NumPad0+i] = "NumPad" + string(rune('0'+i))
	}
	for i := Key(0); i < 26; i++ {
		names[A+i] = string(rune('A' + i))
	}
	for i := Key(0); i < 12; i++ {
		names[F1+i] = "F" + strconv.Itoa(int(i)+1)
	}
	for k := Key(1); k < maxKey; k++ {
		byName[strings.ToLower(names[k])] = k
	}
	for alias, k := range aliases {
		byName[alias] = k
	}
}

// Name returns the canonical display name of k.
func Name(k Key) string {
	if k >= maxKey {
		return names[Unknown]
	}
	return names[k]
}

func (k Key) String() string { return Name(k) }

// IsModifier reports whether k is one of the four tracked modifiers.
func (k Key) IsModifier() bool {
	return k == Ctrl || k == Shift || k == Alt || k == Meta
}

var byName = make(map[string]Key, int(maxKey)+16)

var aliases = map[string]Key{
	"return":     Enter,
	"escape":     Esc,
	"uparrow":    Up,
	"downarrow":  Down,
	"leftarrow":  Left,
	"rightarrow": Right,
	"control":    Ctrl,
	"altgr":      Alt,
	"command":    Meta,
	"cmd":        Meta,
	"super":      Meta,
	"win":        Meta,
	"pgup":       PageUp,
	"pgdn":       PageDown,
	"del":        Delete,
	"ins":        Insert,
	"comma":      Comma,
	"period":     Period,
	"slash":      Slash,
	"minus":      Minus,
	"equal":      Equal,
	"backslash":  Backslash,
	"semicolon":  Semicolon,
	"quote":      Quote,
	"grave":      Grave,
}

// Parse resolves a label token to a key, case-insensitively. Canonical names
// and common aliases ("return", "cmd", "escape") are accepted. Single
// characters resolve for letters, digits and the US-layout punctuation keys.
func Parse(token string) (Key, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Unknown, false
	}
	if utf8.RuneCountInString(token) == 1 {
		r, _ := utf8.DecodeRuneInString(token)
		switch {
		case r >= 'a' && r <= 'z':
			return A + Key(r-'a'), true
		case r >= 'A' && r <= 'Z':
			return A + Key(r-'A'), true
		case r >= '0' && r <= '9':
			return Num0 + Key(r-'0'), true
		}
	}
	k, ok := byName[strings.ToLower(token)]
	return k, ok
}
