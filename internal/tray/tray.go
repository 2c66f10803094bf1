// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Tooltip  string
	Disabled bool
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu. Items are added before Run;
// titles and enabled state can change at any time.
type Tray struct {
	mu      sync.Mutex
	title   string
	tooltip string
	items   []*MenuItem
	quitCh  chan struct{}
	onReady func()
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		items:   make([]*MenuItem, 0),
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray
func (t *Tray) AddMenuItem(title, tooltip string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Tooltip:  tooltip,
		Callback: callback,
	})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

func (t *Tray) get(id int) *MenuItem {
	if id >= 0 && id < len(t.items) {
		return t.items[id]
	}
	return nil
}

// SetItemTitle changes the label of a menu item
func (t *Tray) SetItemTitle(id int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if mi := t.get(id); mi != nil {
		mi.Title = title
		if mi.item != nil {
			mi.item.SetTitle(title)
		}
	}
}

// SetItemEnabled enables or greys out a menu item
func (t *Tray) SetItemEnabled(id int, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if mi := t.get(id); mi != nil {
		mi.Disabled = !enabled
		if mi.item != nil {
			if enabled {
				mi.item.Enable()
			} else {
				mi.item.Disable()
			}
		}
	}
}

// Item returns a copy of the item's current state.
func (t *Tray) Item(id int) (MenuItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if mi := t.get(id); mi != nil {
		return MenuItem{ID: mi.ID, Title: mi.Title, Tooltip: mi.Tooltip, Disabled: mi.Disabled}, true
	}
	return MenuItem{}, false
}

// Run starts the tray event loop and blocks until Stop. It must be called
// from the main goroutine. onReady runs once the menu exists.
func (t *Tray) Run(onReady func()) {
	t.onReady = onReady
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(getIcon())

	t.mu.Lock()
	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		item := systray.AddMenuItem(menuItem.Title, menuItem.Tooltip)
		if menuItem.Disabled {
			item.Disable()
		}
		menuItem.item = item

		// Handle clicks in goroutine
		if menuItem.Callback != nil {
			go func(ch chan struct{}, cb func()) {
				for {
					select {
					case <-ch:
						cb()
					case <-t.quitCh:
						return
					}
				}
			}(item.ClickedCh, menuItem.Callback)
		}
	}
	t.mu.Unlock()

	if t.onReady != nil {
		t.onReady()
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// getIcon renders a 16x16 32-bit ICO: a red record dot on transparency.
func getIcon() []byte {
	const size = 16
	const pixelBytes = size * size * 4
	const maskBytes = size * 4 // 1bpp rows padded to 32 bits
	const imageBytes = 40 + pixelBytes + maskBytes

	icon := make([]byte, 22+imageBytes)
	// ICO header: reserved, type 1 (icon), one image
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Directory entry: 16x16, no palette, 1 plane, 32 bpp, size, offset 22
	copy(icon[6:22], []byte{
		size, size, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		byte(imageBytes & 0xFF), byte(imageBytes >> 8), 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	// BITMAPINFOHEADER; height is doubled to cover the AND mask
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		size, 0x00, 0x00, 0x00,
		size * 2, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		byte(pixelBytes & 0xFF), byte(pixelBytes >> 8), 0x00, 0x00,
	})

	// BGRA rows, bottom-up
	pixels := icon[62 : 62+pixelBytes]
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := 2*x-(size-1), 2*y-(size-1)
			if dx*dx+dy*dy > 12*12 {
				continue
			}
			i := (y*size + x) * 4
			pixels[i+0] = 0x30
			pixels[i+1] = 0x30
			pixels[i+2] = 0xE0
			pixels[i+3] = 0xFF
		}
	}
	return icon
}
