package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/lingyi/internal/app"
	"github.com/ayusman/lingyi/internal/capture"
	"github.com/ayusman/lingyi/internal/config"
	"github.com/ayusman/lingyi/internal/desktop"
	"github.com/ayusman/lingyi/internal/detector"
	"github.com/ayusman/lingyi/internal/dispatch"
	"github.com/ayusman/lingyi/internal/logging"
	"github.com/ayusman/lingyi/internal/metrics"
	"github.com/ayusman/lingyi/internal/plugin"
	"github.com/ayusman/lingyi/internal/server"
	"github.com/ayusman/lingyi/internal/store"
	"github.com/ayusman/lingyi/internal/tray"
)

// pointerMoveInterval throttles pointer moves sent to the host plugin.
const pointerMoveInterval = 33 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lingyi: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
		return err
	}
	logger := logging.Module("main")

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath()), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	desk, err := openDesktop(cfg, st)
	if err != nil {
		return err
	}

	var sink dispatch.InputSink = desk
	if ps := pointerSink(cfg); ps != nil {
		sink = dispatch.Tee(desk, ps)
	}

	preview := capture.NewPreview()
	src, err := openSource(cfg, preview)
	if err != nil {
		return err
	}

	appCfg := app.Config{
		Thresholds:       cfg.Thresholds(),
		Smoothing:        cfg.Smoothing,
		Dispatch:         cfg.Dispatch(),
		CancelOnHandLoss: cfg.CancelOnHandLoss,
		Store:            st,
		EventRetention:   cfg.EventRetention,
		Metrics:          metrics.New(),
	}
	a := app.New(appCfg, desk, sink)
	if _, err := a.LoadSettings(); err != nil {
		logger.Warn().Err(err).Msg("failed to load settings, using defaults")
	}

	if err := a.Start(src); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		logger.Info().Str("dir", staticDir).Msg("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		App:       a,
		Desktop:   desk,
		Store:     st,
		Preview:   preview,
	})

	if !cfg.Tray {
		return serve(ctx, srv, cfg.Addr, a)
	}

	// systray owns the main goroutine.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New(a)
	t.OnQuit(cancel)
	a.OnSettingsChange(t.SettingsChanged)
	go followGesture(ctx, a, t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, srv, cfg.Addr, a)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-errCh
}

// serve runs the HTTP server until ctx is done or the pipeline fails.
func serve(ctx context.Context, srv *server.Server, addr string, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-a.Done():
			if err := a.Err(); err != nil {
				logger := logging.Module("main")
				logger.Error().Err(err).Msg("frame pipeline stopped")
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return srv.Run(ctx, addr)
}

// openDesktop restores the saved layout, or seeds and saves a fresh one.
func openDesktop(cfg *config.Config, st *store.Store) (*desktop.Desktop, error) {
	desk := desktop.New(cfg.Viewport(), cfg.MinWidth, cfg.MinHeight)

	saved, err := st.Windows().List()
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	if len(saved) > 0 {
		for _, w := range saved {
			desk.Restore(dispatch.Window{ID: w.ID, Title: w.Title, Bounds: w.Bounds, Z: w.Z})
		}
		return desk, nil
	}

	for _, w := range desk.Seed() {
		sw := &store.Window{ID: w.ID, Title: w.Title, Bounds: w.Bounds, Z: w.Z}
		if err := st.Windows().Save(sw); err != nil {
			return nil, fmt.Errorf("save window: %w", err)
		}
	}
	return desk, nil
}

// pointerSink returns a sink backed by the configured pointer plugin, or
// nil when none is configured or found.
func pointerSink(cfg *config.Config) dispatch.InputSink {
	if cfg.PointerPlugin == "" {
		return nil
	}
	logger := logging.Module("main")

	mgr := plugin.NewManager(cfg.PluginPath())
	if err := mgr.Discover(); err != nil {
		logger.Warn().Err(err).Msg("plugin discovery failed")
		return nil
	}
	p, err := mgr.Get(cfg.PointerPlugin)
	if err != nil {
		logger.Warn().Str("plugin", cfg.PointerPlugin).Str("dir", mgr.PluginDir()).Msg("pointer plugin not found")
		return nil
	}
	logger.Info().Str("plugin", p.Manifest.Name).Strs("actions", p.Manifest.Actions).Msg("mirroring pointer input")
	return plugin.NewSink(plugin.NewExecutor(plugin.DefaultTimeout), p, pointerMoveInterval)
}

// openSource picks a replay file or the live camera, optionally recording.
func openSource(cfg *config.Config, preview *capture.Preview) (capture.Source, error) {
	logger := logging.Module("main")

	var src capture.Source
	if cfg.ReplayPath != "" {
		rs, err := capture.OpenReplay(cfg.ReplayPath, cfg.ReplayPaced)
		if err != nil {
			return nil, fmt.Errorf("open replay: %w", err)
		}
		logger.Info().Str("path", cfg.ReplayPath).Msg("replaying recorded frames")
		src = rs
	} else {
		detCfg := detector.DefaultConfig()
		detCfg.PythonPath = cfg.PythonPath
		detCfg.ScriptPath = cfg.TrackerScript

		var det detector.Detector
		mp, err := detector.NewMediaPipeDetector(detCfg)
		if err != nil {
			logger.Warn().Err(err).Msg("hand tracker unavailable, running without hands")
			det = detector.NewMockDetector()
		} else {
			det = mp
		}

		cs, err := capture.OpenCameraSource(capture.NewCamera(cfg.CameraID), det, capture.CameraSourceConfig{
			MotionThreshold: cfg.MotionThreshold,
			Preview:         preview,
		})
		if err != nil {
			det.Close()
			return nil, fmt.Errorf("open camera %d: %w", cfg.CameraID, err)
		}
		src = cs
	}

	if cfg.RecordPath != "" {
		f, err := os.OpenFile(cfg.RecordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("open record file: %w", err)
		}
		src = capture.NewRecorder(src, f)
	}
	return src, nil
}

// followGesture shows the current gesture in the tray.
func followGesture(ctx context.Context, a *app.App, t *tray.Tray) {
	states := a.Subscribe()
	defer a.Unsubscribe(states)

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if name := string(st.State); name != last {
				last = name
				t.SetGesture(name)
			}
		}
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
