// Package tray provides the system tray menu for LingYi.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/logging"
	"github.com/ayusman/lingyi/internal/store"
)

// SettingsService is the part of the app the tray drives.
type SettingsService interface {
	Settings() store.Settings
	ApplySettings(store.Settings) error
}

// toggle names one checkbox in the menu.
type toggle int

const (
	toggleEnabled toggle = iota
	toggleCamera
	toggleCodePanel
)

// flip returns s with the given toggle inverted.
func flip(s store.Settings, which toggle) store.Settings {
	switch which {
	case toggleEnabled:
		s.Enabled = !s.Enabled
	case toggleCamera:
		s.ShowCamera = !s.ShowCamera
	case toggleCodePanel:
		s.ShowCodePanel = !s.ShowCodePanel
	}
	return s
}

func gestureLabel(name string) string {
	if name == "" || name == "idle" {
		return "Gesture: none"
	}
	return "Gesture: " + name
}

// Tray represents the system tray application.
type Tray struct {
	settings   SettingsService
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex
	log        zerolog.Logger

	// Menu items stored for later updates
	items       map[toggle]*systray.MenuItem
	menuGesture *systray.MenuItem
}

// New creates a Tray bound to s.
func New(s SettingsService) *Tray {
	return &Tray{settings: s, log: logging.Module("tray")}
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("LingYi")
	systray.SetTooltip("LingYi webcam gestures")

	s := t.settings.Settings()

	t.mu.Lock()
	t.items = map[toggle]*systray.MenuItem{
		toggleEnabled:   systray.AddMenuItemCheckbox("Gestures enabled", "Toggle gesture control", s.Enabled),
		toggleCamera:    systray.AddMenuItemCheckbox("Show camera", "Show the camera preview", s.ShowCamera),
		toggleCodePanel: systray.AddMenuItemCheckbox("Show code panel", "Stream landmarks to the code panel", s.ShowCodePanel),
	}
	systray.AddSeparator()

	t.menuGesture = systray.AddMenuItem(gestureLabel(""), "Current gesture")
	t.menuGesture.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit LingYi")

	go func() {
		for {
			select {
			case <-t.items[toggleEnabled].ClickedCh:
				t.handleToggle(toggleEnabled)
			case <-t.items[toggleCamera].ClickedCh:
				t.handleToggle(toggleCamera)
			case <-t.items[toggleCodePanel].ClickedCh:
				t.handleToggle(toggleCodePanel)
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle(which toggle) {
	next := flip(t.settings.Settings(), which)
	if err := t.settings.ApplySettings(next); err != nil {
		t.log.Error().Err(err).Msg("failed to apply settings")
	}
	// Checkmarks follow via SettingsChanged.
}

// SettingsChanged refreshes the checkmarks. Register it with the app so
// changes made over HTTP show up in the menu too.
func (t *Tray) SettingsChanged(s store.Settings) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.items == nil {
		return
	}
	setChecked(t.items[toggleEnabled], s.Enabled)
	setChecked(t.items[toggleCamera], s.ShowCamera)
	setChecked(t.items[toggleCodePanel], s.ShowCodePanel)
}

func setChecked(item *systray.MenuItem, on bool) {
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

// SetGesture updates the current gesture display in the menu.
func (t *Tray) SetGesture(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuGesture != nil {
		t.menuGesture.SetTitle(gestureLabel(name))
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}
