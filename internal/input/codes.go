package input

import (
	"strconv"

	"macroreel/internal/keys"
	"macroreel/internal/macro"
)

// Virtual key codes reported by libuiohook, which backs the gohook listener.
var uiohookKeys = map[uint16]keys.Key{
	0x000E: keys.Backspace,
	0x000F: keys.Tab,
	0x001C: keys.Enter,
	0x0E1C: keys.Enter, // keypad enter
	0x0001: keys.Esc,
	0x0039: keys.Space,
	0x001D: keys.Ctrl,
	0x0E1D: keys.Ctrl,
	0x002A: keys.Shift,
	0x0036: keys.Shift,
	0x0038: keys.Alt,
	0x0E38: keys.Alt,
	0x0E5B: keys.Meta,
	0x0E5C: keys.Meta,
	0x003A: keys.CapsLock,
	0x0E47: keys.Home,
	0x0E4F: keys.End,
	0x0E49: keys.PageUp,
	0x0E51: keys.PageDown,
	0x0E52: keys.Insert,
	0x0E53: keys.Delete,
	0xE04B: keys.Left,
	0xE04D: keys.Right,
	0xE048: keys.Up,
	0xE050: keys.Down,

	0x000B: keys.Num0,
	0x0002: keys.Num1,
	0x0003: keys.Num2,
	0x0004: keys.Num3,
	0x0005: keys.Num4,
	0x0006: keys.Num5,
	0x0007: keys.Num6,
	0x0008: keys.Num7,
	0x0009: keys.Num8,
	0x000A: keys.Num9,

	0x001E: keys.A,
	0x0030: keys.B,
	0x002E: keys.C,
	0x0020: keys.D,
	0x0012: keys.E,
	0x0021: keys.F,
	0x0022: keys.G,
	0x0023: keys.H,
	0x0017: keys.I,
	0x0024: keys.J,
	0x0025: keys.K,
	0x0026: keys.L,
	0x0032: keys.M,
	0x0031: keys.N,
	0x0018: keys.O,
	0x0019: keys.P,
	0x0010: keys.Q,
	0x0013: keys.R,
	0x001F: keys.S,
	0x0014: keys.T,
	0x0016: keys.U,
	0x002F: keys.V,
	0x0011: keys.W,
	0x002D: keys.X,
	0x0015: keys.Y,
	0x002C: keys.Z,

	0x003B: keys.F1,
	0x003C: keys.F2,
	0x003D: keys.F3,
	0x003E: keys.F4,
	0x003F: keys.F5,
	0x0040: keys.F6,
	0x0041: keys.F7,
	0x0042: keys.F8,
	0x0043: keys.F9,
	0x0044: keys.F10,
	0x0057: keys.F11,
	0x0058: keys.F12,

	0x0052: keys.NumPad0,
	0x004F: keys.NumPad1,
	0x0050: keys.NumPad2,
	0x0051: keys.NumPad3,
	0x004B: keys.NumPad4,
	0x004C: keys.NumPad5,
	0x004D: keys.NumPad6,
	0x0047: keys.NumPad7,
	0x0048: keys.NumPad8,
	0x0049: keys.NumPad9,
	0x004E: keys.NumPadAdd,
	0x004A: keys.NumPadSubtract,
	0x0037: keys.NumPadMultiply,
	0x0E35: keys.NumPadDivide,

	0x0033: keys.Comma,
	0x0034: keys.Period,
	0x0035: keys.Slash,
	0x000C: keys.Minus,
	0x000D: keys.Equal,
	0x001A: keys.LeftBracket,
	0x001B: keys.RightBracket,
	0x002B: keys.Backslash,
	0x0027: keys.Semicolon,
	0x0028: keys.Quote,
	0x0029: keys.Grave,
}

// KeyFromUiohook translates a libuiohook key code.
func KeyFromUiohook(code uint16) keys.Key {
	if k, ok := uiohookKeys[code]; ok {
		return k
	}
	return keys.Unknown
}

// Windows virtual-key codes. Only the side-agnostic modifier codes are listed
// so a held Shift is reported once.
var windowsVKKeys = map[uint16]keys.Key{
	0x08: keys.Backspace,
	0x09: keys.Tab,
	0x0D: keys.Enter,
	0x10: keys.Shift,
	0x11: keys.Ctrl,
	0x12: keys.Alt,
	0x14: keys.CapsLock,
	0x1B: keys.Esc,
	0x20: keys.Space,
	0x21: keys.PageUp,
	0x22: keys.PageDown,
	0x23: keys.End,
	0x24: keys.Home,
	0x25: keys.Left,
	0x26: keys.Up,
	0x27: keys.Right,
	0x28: keys.Down,
	0x2D: keys.Insert,
	0x2E: keys.Delete,
	0x5B: keys.Meta,
	0x5C: keys.Meta,
	0x6A: keys.NumPadMultiply,
	0x6B: keys.NumPadAdd,
	0x6D: keys.NumPadSubtract,
	0x6F: keys.NumPadDivide,
	0xBA: keys.Semicolon, // VK_OEM_1
	0xBB: keys.Equal,     // VK_OEM_PLUS
	0xBC: keys.Comma,
	0xBD: keys.Minus,
	0xBE: keys.Period,
	0xBF: keys.Slash, // VK_OEM_2
	0xC0: keys.Grave, // VK_OEM_3
	0xDB: keys.LeftBracket,
	0xDC: keys.Backslash,
	0xDD: keys.RightBracket,
	0xDE: keys.Quote, // VK_OEM_7
}

func init() {
	for i := uint16(0); i < 10; i++ {
		windowsVKKeys[0x30+i] = keys.Num0 + keys.Key(i)
		windowsVKKeys[0x60+i] = keys.NumPad0 + keys.Key(i)
	}
	for i := uint16(0); i < 26; i++ {
		windowsVKKeys[0x41+i] = keys.A + keys.Key(i)
	}
	for i := uint16(0); i < 12; i++ {
		windowsVKKeys[0x70+i] = keys.F1 + keys.Key(i)
	}
}

// KeyFromWindowsVK translates a Windows virtual-key code.
func KeyFromWindowsVK(vk uint16) keys.Key {
	if k, ok := windowsVKKeys[vk]; ok {
		return k
	}
	return keys.Unknown
}

// robotgoKeyNames are the key names accepted by robotgo.KeyToggle.
var robotgoKeyNames = map[keys.Key]string{
	keys.Backspace:      "backspace",
	keys.Tab:            "tab",
	keys.Enter:          "enter",
	keys.Esc:            "escape",
	keys.Space:          "space",
	keys.Ctrl:           "ctrl",
	keys.Shift:          "shift",
	keys.Alt:            "alt",
	keys.Meta:           "cmd",
	keys.CapsLock:       "capslock",
	keys.Home:           "home",
	keys.End:            "end",
	keys.PageUp:         "pageup",
	keys.PageDown:       "pagedown",
	keys.Insert:         "insert",
	keys.Delete:         "delete",
	keys.Left:           "left",
	keys.Right:          "right",
	keys.Up:             "up",
	keys.Down:           "down",
	keys.NumPadAdd:      "num+",
	keys.NumPadSubtract: "num-",
	keys.NumPadMultiply: "num*",
	keys.NumPadDivide:   "num/",

	// robotgo maps single characters through the active layout.
	keys.Comma:        ",",
	keys.Period:       ".",
	keys.Slash:        "/",
	keys.Minus:        "-",
	keys.Equal:        "=",
	keys.LeftBracket:  "[",
	keys.RightBracket: "]",
	keys.Backslash:    `\`,
	keys.Semicolon:    ";",
	keys.Quote:        "'",
	keys.Grave:        "`",
}

func init() {
	for i := keys.Key(0); i < 10; i++ {
		robotgoKeyNames[keys.Num0+i] = string(rune('0' + i))
		robotgoKeyNames[keys.NumPad0+i] = "num" + string(rune('0'+i))
	}
	for i := keys.Key(0); i < 26; i++ {
		robotgoKeyNames[keys.A+i] = string(rune('a' + i))
	}
	for i := keys.Key(0); i < 12; i++ {
		robotgoKeyNames[keys.F1+i] = "f" + strconv.Itoa(int(i)+1)
	}
}

// RobotgoKeyName returns the robotgo name of k. Fn has no synthesizable
// equivalent.
func RobotgoKeyName(k keys.Key) (string, bool) {
	name, ok := robotgoKeyNames[k]
	return name, ok
}

// robotgoButton maps a button to robotgo's name. Unknown buttons press left.
func robotgoButton(b macro.Button) string {
	switch b {
	case macro.ButtonRight:
		return "right"
	case macro.ButtonMiddle:
		return "center"
	default:
		return "left"
	}
}
