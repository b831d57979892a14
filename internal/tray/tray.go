// Package tray provides a system tray menu for the camera painter.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/chitra/internal/painter"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onClear  func()
	onOpen   func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray with painting enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback for pausing and resuming painting.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnClear sets the callback for the clear canvas item.
func (t *Tray) OnClear(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = fn
}

// OnOpen sets the callback for the open in browser item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("Chitra")
	systray.SetTooltip("Chitra virtual painter")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume gesture painting")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem(statusTitle(painter.State{}), "Current brush")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuClear := systray.AddMenuItem("Clear Canvas", "Erase the camera canvas")
	menuOpen := systray.AddMenuItem("Open in Browser...", "Show the painted stream")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Chitra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuClear.ClickedCh:
				t.call(t.onClearFn())
			case <-menuOpen.ClickedCh:
				t.call(t.onOpenFn())
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the painting state and notifies the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) onClearFn() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onClear
}

func (t *Tray) onOpenFn() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onOpen
}

func (t *Tray) call(fn func()) {
	if fn != nil {
		fn()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	t.call(callback)
	systray.Quit()
}

// SetState shows the current mode and brush in the menu.
func (t *Tray) SetState(st painter.State) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(st))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Painting"
	}
	return "○ Paused"
}

func statusTitle(st painter.State) string {
	if st.Color == "" {
		return "Brush: waiting for camera"
	}
	return fmt.Sprintf("Brush: %s, %dpx (%s)", st.Color, st.Thickness, st.Mode)
}
