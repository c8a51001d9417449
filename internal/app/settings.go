package app

import (
	"fmt"

	"github.com/ayusman/lingyi/internal/store"
)

// Settings returns the current user toggles.
func (a *App) Settings() store.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// LoadSettings reads the persisted toggles and applies them. Without a
// store the defaults stay in effect.
func (a *App) LoadSettings() (store.Settings, error) {
	if a.config.Store == nil {
		return a.Settings(), nil
	}
	s, err := a.config.Store.Settings().Load()
	if err != nil {
		return a.Settings(), fmt.Errorf("load settings: %w", err)
	}
	a.apply(s)
	return s, nil
}

// ApplySettings persists s and applies it. Listeners registered with
// OnSettingsChange are called afterwards.
func (a *App) ApplySettings(s store.Settings) error {
	if a.config.Store != nil {
		if err := a.config.Store.Settings().Save(s); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	a.apply(s)
	return nil
}

func (a *App) apply(s store.Settings) {
	a.SetEnabled(s.Enabled)

	a.mu.Lock()
	a.settings = s
	listeners := append(([]func(store.Settings))(nil), a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// OnSettingsChange registers fn to run after settings change.
func (a *App) OnSettingsChange(fn func(store.Settings)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}
