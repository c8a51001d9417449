package store

import (
	"database/sql"
	"errors"
	"strconv"
)

// Setting keys used by LingYi.
const (
	KeyEnabled       = "lingyi.enabled"
	KeyShowCamera    = "lingyi.show_camera"
	KeyShowCodePanel = "lingyi.show_code_panel"
)

// Settings are the user-facing LingYi toggles.
type Settings struct {
	Enabled       bool `json:"enabled"`
	ShowCamera    bool `json:"show_camera"`
	ShowCodePanel bool `json:"show_code_panel"`
}

// DefaultSettings is what a fresh database reports.
func DefaultSettings() Settings {
	return Settings{Enabled: true}
}

// SettingsRepository reads and writes key/value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the raw value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetBool returns the boolean under key, or def when it is unset.
func (r *SettingsRepository) GetBool(key string, def bool) (bool, error) {
	v, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, err
	}
	return b, nil
}

// SetBool stores a boolean under key.
func (r *SettingsRepository) SetBool(key string, v bool) error {
	return r.Set(key, strconv.FormatBool(v))
}

// Load returns the LingYi toggles, filling unset keys from DefaultSettings.
func (r *SettingsRepository) Load() (Settings, error) {
	s := DefaultSettings()
	var err error

	if s.Enabled, err = r.GetBool(KeyEnabled, s.Enabled); err != nil {
		return s, err
	}
	if s.ShowCamera, err = r.GetBool(KeyShowCamera, s.ShowCamera); err != nil {
		return s, err
	}
	if s.ShowCodePanel, err = r.GetBool(KeyShowCodePanel, s.ShowCodePanel); err != nil {
		return s, err
	}
	return s, nil
}

// Save writes all LingYi toggles in one transaction.
func (r *SettingsRepository) Save(s Settings) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	values := map[string]bool{
		KeyEnabled:       s.Enabled,
		KeyShowCamera:    s.ShowCamera,
		KeyShowCodePanel: s.ShowCodePanel,
	}
	for k, v := range values {
		if _, err := stmt.Exec(k, strconv.FormatBool(v)); err != nil {
			return err
		}
	}

	return tx.Commit()
}
