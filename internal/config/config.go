// Package config defines LingYi's process configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/lingyi/internal/cursor"
	"github.com/ayusman/lingyi/internal/dispatch"
	"github.com/ayusman/lingyi/internal/geom"
	"github.com/ayusman/lingyi/internal/gesture"
	"github.com/ayusman/lingyi/internal/logging"
)

// Config contains process configuration. Keys are flat so each field maps
// to one LINGYI_<KEY> environment variable.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogPretty switches from JSON lines to the console writer.
	LogPretty bool `koanf:"log_pretty"`

	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`
	// StaticDir, if set, is served at /.
	StaticDir string `koanf:"static_dir"`

	// DataDir holds the database and the default plugin directory.
	DataDir string `koanf:"data_dir"`
	// DBPath overrides <data_dir>/lingyi.db.
	DBPath string `koanf:"db_path"`
	// EventRetention caps the gesture event journal.
	EventRetention int `koanf:"event_retention"`

	CameraID        int     `koanf:"camera_id"`
	MotionThreshold float64 `koanf:"motion_threshold"`
	PythonPath      string  `koanf:"python_path"`
	TrackerScript   string  `koanf:"tracker_script"`

	// ReplayPath reads frames from a JSONL recording instead of the camera.
	ReplayPath  string `koanf:"replay_path"`
	ReplayPaced bool   `koanf:"replay_paced"`
	// RecordPath appends every processed frame to a JSONL file.
	RecordPath string `koanf:"record_path"`

	// PluginDir overrides <data_dir>/plugins.
	PluginDir string `koanf:"plugin_dir"`
	// PointerPlugin names a plugin that mirrors pointer input to the host.
	PointerPlugin string `koanf:"pointer_plugin"`

	Tray bool `koanf:"tray"`

	ViewportWidth  float64 `koanf:"viewport_width"`
	ViewportHeight float64 `koanf:"viewport_height"`

	PinchThreshold       float64 `koanf:"pinch_threshold"`
	ThreeFingerThreshold float64 `koanf:"three_finger_threshold"`
	FistThreshold        float64 `koanf:"fist_threshold"`
	OpenPalmThreshold    float64 `koanf:"open_palm_threshold"`

	Smoothing     float64 `koanf:"smoothing"`
	EdgeThreshold float64 `koanf:"edge_threshold"`
	MinWidth      float64 `koanf:"min_width"`
	MinHeight     float64 `koanf:"min_height"`
	ScrollGain    float64 `koanf:"scroll_gain"`

	// CancelOnHandLoss ends resize/drag/scroll sessions when the hand
	// disappears. Off by default: sessions wait for the hand to return.
	CancelOnHandLoss bool `koanf:"cancel_on_hand_loss"`
}

// New returns a Config with defaults.
func New() *Config {
	t := gesture.DefaultThresholds()
	d := dispatch.DefaultConfig()

	dataDir := ".lingyi"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".lingyi")
	}

	return &Config{
		LogLevel:             "info",
		Addr:                 "127.0.0.1:8765",
		DataDir:              dataDir,
		EventRetention:       10_000,
		MotionThreshold:      1.0,
		ReplayPaced:          true,
		ViewportWidth:        1920,
		ViewportHeight:       1080,
		PinchThreshold:       t.Pinch,
		ThreeFingerThreshold: t.ThreeFinger,
		FistThreshold:        t.Fist,
		OpenPalmThreshold:    t.OpenPalm,
		Smoothing:            cursor.DefaultSmoothing,
		EdgeThreshold:        d.EdgeThreshold,
		MinWidth:             d.MinWidth,
		MinHeight:            d.MinHeight,
		ScrollGain:           d.ScrollGain,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("%w: viewport must be positive, got %vx%v", ErrInvalidConfig, c.ViewportWidth, c.ViewportHeight)
	}

	positive := map[string]float64{
		"pinch_threshold":        c.PinchThreshold,
		"three_finger_threshold": c.ThreeFingerThreshold,
		"fist_threshold":         c.FistThreshold,
		"open_palm_threshold":    c.OpenPalmThreshold,
		"edge_threshold":         c.EdgeThreshold,
		"min_width":              c.MinWidth,
		"min_height":             c.MinHeight,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, name, v)
		}
	}

	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return fmt.Errorf("%w: smoothing must be in (0, 1], got %v", ErrInvalidConfig, c.Smoothing)
	}
	if c.EventRetention < 0 {
		return fmt.Errorf("%w: event_retention must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Thresholds returns the classifier thresholds.
func (c *Config) Thresholds() gesture.Thresholds {
	return gesture.Thresholds{
		Pinch:       c.PinchThreshold,
		ThreeFinger: c.ThreeFingerThreshold,
		Fist:        c.FistThreshold,
		OpenPalm:    c.OpenPalmThreshold,
	}
}

// Dispatch returns the dispatcher limits.
func (c *Config) Dispatch() dispatch.Config {
	return dispatch.Config{
		EdgeThreshold: c.EdgeThreshold,
		MinWidth:      c.MinWidth,
		MinHeight:     c.MinHeight,
		ScrollGain:    c.ScrollGain,
	}
}

// Viewport returns the configured screen size.
func (c *Config) Viewport() geom.Size {
	return geom.Size{Width: c.ViewportWidth, Height: c.ViewportHeight}
}

// DatabasePath returns DBPath or its default under DataDir.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "lingyi.db")
}

// PluginPath returns PluginDir or its default under DataDir.
func (c *Config) PluginPath() string {
	if c.PluginDir != "" {
		return c.PluginDir
	}
	return filepath.Join(c.DataDir, "plugins")
}
