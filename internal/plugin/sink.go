package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/lingyi/internal/geom"
)

// Actions understood by pointer plugins.
const (
	ActionMove        = "move"
	ActionClick       = "click"
	ActionContextMenu = "context-menu"
	ActionScroll      = "scroll"
)

// PointerParams is the Request.Params payload sent by Sink.
type PointerParams struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DY float64 `json:"dy,omitempty"`
}

// Sink forwards pointer input to a plugin. Actions the manifest does not
// list are dropped, as are window moves and resizes, which only exist on
// the in-memory desktop. Pointer moves are rate limited because every call
// starts a process.
type Sink struct {
	exec     *Executor
	plugin   *Plugin
	interval time.Duration

	mu       sync.Mutex
	lastMove time.Time
}

// NewSink creates a Sink sending at most one move per moveInterval.
func NewSink(exec *Executor, plugin *Plugin, moveInterval time.Duration) *Sink {
	return &Sink{exec: exec, plugin: plugin, interval: moveInterval}
}

func (s *Sink) send(ctx context.Context, action string, params PointerParams) error {
	if !s.plugin.Manifest.Supports(action) {
		return nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	resp, err := s.exec.Execute(ctx, s.plugin, &Request{Action: action, Params: raw})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s %s: %s", s.plugin.Manifest.Name, action, resp.Error)
	}
	return nil
}

func (s *Sink) MovePointer(ctx context.Context, p geom.Point) error {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.lastMove) < s.interval {
		s.mu.Unlock()
		return nil
	}
	s.lastMove = now
	s.mu.Unlock()

	return s.send(ctx, ActionMove, PointerParams{X: p.X, Y: p.Y})
}

func (s *Sink) Click(ctx context.Context, p geom.Point) error {
	return s.send(ctx, ActionClick, PointerParams{X: p.X, Y: p.Y})
}

func (s *Sink) ContextMenu(ctx context.Context, p geom.Point) error {
	return s.send(ctx, ActionContextMenu, PointerParams{X: p.X, Y: p.Y})
}

func (s *Sink) Scroll(ctx context.Context, p geom.Point, dy float64) error {
	return s.send(ctx, ActionScroll, PointerParams{X: p.X, Y: p.Y, DY: dy})
}

func (s *Sink) MoveWindow(context.Context, string, geom.Rect) error { return nil }

func (s *Sink) ResizeWindow(context.Context, string, geom.Edge, geom.Rect) error { return nil }
