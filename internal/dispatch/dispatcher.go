package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/gesture"
	"github.com/ayusman/lingyi/internal/geom"
	"github.com/ayusman/lingyi/internal/logging"
)

// Config holds the dispatcher's geometry limits.
type Config struct {
	// EdgeThreshold is the band in pixels around a window edge that turns
	// a pinch into a resize instead of a click.
	EdgeThreshold float64
	// MinWidth and MinHeight bound resizes from below.
	MinWidth  float64
	MinHeight float64
	// ScrollGain multiplies the vertical cursor delta while scrolling.
	ScrollGain float64
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		EdgeThreshold: 20,
		MinWidth:      300,
		MinHeight:     200,
		ScrollGain:    1,
	}
}

// ActionKind names what the dispatcher did in response to an edge.
type ActionKind string

const (
	ActionClick       ActionKind = "click"
	ActionContextMenu ActionKind = "context-menu"
	ActionResizeStart ActionKind = "resize-start"
	ActionResize      ActionKind = "resize"
	ActionResizeEnd   ActionKind = "resize-end"
	ActionDragStart   ActionKind = "drag-start"
	ActionDrag        ActionKind = "drag"
	ActionDragEnd     ActionKind = "drag-end"
	ActionScrollStart ActionKind = "scroll-start"
	ActionScroll      ActionKind = "scroll"
	ActionScrollEnd   ActionKind = "scroll-end"
)

// Continuous reports whether the action repeats every frame of a session.
func (k ActionKind) Continuous() bool {
	return k == ActionResize || k == ActionDrag || k == ActionScroll
}

// Action records one dispatcher effect.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Point     geom.Point `json:"point"`
	WindowID  string     `json:"windowId,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Bounds    geom.Rect  `json:"bounds"`
	Edge      geom.Edge  `json:"edge,omitempty"`
	Delta     float64    `json:"delta,omitempty"`
}

// ResizeState is the pinch-resize session in progress.
type ResizeState struct {
	ID          string
	WindowID    string
	Edge        geom.Edge
	StartCursor geom.Point
	StartBounds geom.Rect
	Bounds      geom.Rect
}

// FistDragState is the fist-drag session in progress.
type FistDragState struct {
	ID          string
	WindowID    string
	StartCursor geom.Point
	StartBounds geom.Rect
	Bounds      geom.Rect
}

// ScrollState is the open-palm scroll session in progress.
type ScrollState struct {
	ID   string
	Last geom.Point
}

// Dispatcher owns the transient sessions and maps edges to sink calls.
// It is not safe for concurrent use; all calls happen on the frame loop.
type Dispatcher struct {
	config  Config
	surface Surface
	sink    InputSink
	resize  *ResizeState
	drag    *FistDragState
	scroll  *ScrollState
	log     zerolog.Logger
}

// New creates a Dispatcher reading geometry from surface and acting on sink.
func New(config Config, surface Surface, sink InputSink) *Dispatcher {
	def := DefaultConfig()
	if config.EdgeThreshold <= 0 {
		config.EdgeThreshold = def.EdgeThreshold
	}
	if config.MinWidth <= 0 {
		config.MinWidth = def.MinWidth
	}
	if config.MinHeight <= 0 {
		config.MinHeight = def.MinHeight
	}
	if config.ScrollGain == 0 {
		config.ScrollGain = def.ScrollGain
	}
	return &Dispatcher{
		config:  config,
		surface: surface,
		sink:    sink,
		log:     logging.Module("dispatch"),
	}
}

// Resize returns the active resize session, if any.
func (d *Dispatcher) Resize() *ResizeState { return d.resize }

// Drag returns the active drag session, if any.
func (d *Dispatcher) Drag() *FistDragState { return d.drag }

// Scrolling returns the active scroll session, if any.
func (d *Dispatcher) Scrolling() *ScrollState { return d.scroll }

// Busy reports whether any session is active.
func (d *Dispatcher) Busy() bool {
	return d.resize != nil || d.drag != nil || d.scroll != nil
}

// Handle applies one frame's edges at cursor position p. Edges are handled
// in order, so an End always clears its session before a following Start.
// Sink failures are collected and returned joined; the remaining edges are
// still processed.
func (d *Dispatcher) Handle(ctx context.Context, edges []gesture.Edge, p geom.Point) ([]Action, error) {
	var actions []Action
	var errs []error

	for _, e := range edges {
		a, err := d.handleEdge(ctx, e, p)
		if a != nil {
			actions = append(actions, *a)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", e.Gesture, e.Phase, err))
		}
	}

	return actions, errors.Join(errs...)
}

func (d *Dispatcher) handleEdge(ctx context.Context, e gesture.Edge, p geom.Point) (*Action, error) {
	switch e.Gesture {
	case gesture.StatePinching:
		switch e.Phase {
		case gesture.PhaseStart:
			return d.pinchStart(ctx, p)
		case gesture.PhaseHold:
			return d.resizeMove(ctx, p)
		case gesture.PhaseEnd:
			return d.resizeEnd(p), nil
		}
	case gesture.StateThreeFinger:
		if e.Phase == gesture.PhaseStart && !d.Busy() {
			return &Action{Kind: ActionContextMenu, Point: p}, d.sink.ContextMenu(ctx, p)
		}
	case gesture.StateFist:
		switch e.Phase {
		case gesture.PhaseStart:
			return d.dragStart(p), nil
		case gesture.PhaseHold:
			return d.dragMove(ctx, p)
		case gesture.PhaseEnd:
			return d.dragEnd(p), nil
		}
	case gesture.StateOpenPalm:
		switch e.Phase {
		case gesture.PhaseStart:
			return d.scrollStart(p), nil
		case gesture.PhaseHold:
			return d.scrollMove(ctx, p)
		case gesture.PhaseEnd:
			return d.scrollEnd(p), nil
		}
	}
	return nil, nil
}

// Cancel ends every active session without further sink calls.
func (d *Dispatcher) Cancel(p geom.Point) []Action {
	var actions []Action
	if a := d.resizeEnd(p); a != nil {
		actions = append(actions, *a)
	}
	if a := d.dragEnd(p); a != nil {
		actions = append(actions, *a)
	}
	if a := d.scrollEnd(p); a != nil {
		actions = append(actions, *a)
	}
	return actions
}

// pinchStart begins a resize when p sits on the edge band of the topmost
// window under it, and clicks otherwise.
func (d *Dispatcher) pinchStart(ctx context.Context, p geom.Point) (*Action, error) {
	if d.Busy() {
		return nil, nil
	}

	for _, w := range byZDesc(d.surface.Windows()) {
		if edge := geom.EdgeAt(w.Bounds, p, d.config.EdgeThreshold); edge != geom.EdgeNone {
			d.resize = &ResizeState{
				ID:          uuid.NewString(),
				WindowID:    w.ID,
				Edge:        edge,
				StartCursor: p,
				StartBounds: w.Bounds,
				Bounds:      w.Bounds,
			}
			d.log.Debug().Str("window", w.ID).Str("edge", edge.String()).Msg("resize started")
			return &Action{Kind: ActionResizeStart, Point: p, WindowID: w.ID, SessionID: d.resize.ID, Bounds: w.Bounds, Edge: edge}, nil
		}
		if w.Bounds.Contains(p) {
			break
		}
	}

	return &Action{Kind: ActionClick, Point: p}, d.sink.Click(ctx, p)
}

func (d *Dispatcher) resizeMove(ctx context.Context, p geom.Point) (*Action, error) {
	r := d.resize
	if r == nil {
		return nil, nil
	}
	r.Bounds = ResizeBounds(r.StartBounds, r.Edge, p.Sub(r.StartCursor), d.surface.Viewport(), d.config.MinWidth, d.config.MinHeight)
	a := &Action{Kind: ActionResize, Point: p, WindowID: r.WindowID, SessionID: r.ID, Bounds: r.Bounds, Edge: r.Edge}
	return a, d.sink.ResizeWindow(ctx, r.WindowID, r.Edge, r.Bounds)
}

func (d *Dispatcher) resizeEnd(p geom.Point) *Action {
	r := d.resize
	if r == nil {
		return nil
	}
	d.resize = nil
	d.log.Debug().Str("window", r.WindowID).Msg("resize ended")
	return &Action{Kind: ActionResizeEnd, Point: p, WindowID: r.WindowID, SessionID: r.ID, Bounds: r.Bounds, Edge: r.Edge}
}

// dragStart grabs the topmost window wherever the cursor is.
func (d *Dispatcher) dragStart(p geom.Point) *Action {
	if d.Busy() {
		return nil
	}
	ws := byZDesc(d.surface.Windows())
	if len(ws) == 0 {
		return nil
	}
	w := ws[0]
	d.drag = &FistDragState{
		ID:          uuid.NewString(),
		WindowID:    w.ID,
		StartCursor: p,
		StartBounds: w.Bounds,
		Bounds:      w.Bounds,
	}
	d.log.Debug().Str("window", w.ID).Msg("drag started")
	return &Action{Kind: ActionDragStart, Point: p, WindowID: w.ID, SessionID: d.drag.ID, Bounds: w.Bounds}
}

func (d *Dispatcher) dragMove(ctx context.Context, p geom.Point) (*Action, error) {
	s := d.drag
	if s == nil {
		return nil, nil
	}
	s.Bounds = DragBounds(s.StartBounds, p.Sub(s.StartCursor), d.surface.Viewport())
	a := &Action{Kind: ActionDrag, Point: p, WindowID: s.WindowID, SessionID: s.ID, Bounds: s.Bounds}
	return a, d.sink.MoveWindow(ctx, s.WindowID, s.Bounds)
}

func (d *Dispatcher) dragEnd(p geom.Point) *Action {
	s := d.drag
	if s == nil {
		return nil
	}
	d.drag = nil
	d.log.Debug().Str("window", s.WindowID).Msg("drag ended")
	return &Action{Kind: ActionDragEnd, Point: p, WindowID: s.WindowID, SessionID: s.ID, Bounds: s.Bounds}
}

func (d *Dispatcher) scrollStart(p geom.Point) *Action {
	if d.Busy() {
		return nil
	}
	d.scroll = &ScrollState{ID: uuid.NewString(), Last: p}
	return &Action{Kind: ActionScrollStart, Point: p, SessionID: d.scroll.ID}
}

func (d *Dispatcher) scrollMove(ctx context.Context, p geom.Point) (*Action, error) {
	s := d.scroll
	if s == nil {
		return nil, nil
	}
	dy := (p.Y - s.Last.Y) * d.config.ScrollGain
	s.Last = p
	if dy == 0 {
		return nil, nil
	}
	return &Action{Kind: ActionScroll, Point: p, SessionID: s.ID, Delta: dy}, d.sink.Scroll(ctx, p, dy)
}

func (d *Dispatcher) scrollEnd(p geom.Point) *Action {
	s := d.scroll
	if s == nil {
		return nil
	}
	d.scroll = nil
	return &Action{Kind: ActionScrollEnd, Point: p, SessionID: s.ID}
}

// ResizeBounds applies delta to the grabbed edges of start. Edges stay
// inside the viewport and the size never drops below minW x minH; the
// minimum wins over the viewport when both cannot hold.
func ResizeBounds(start geom.Rect, edge geom.Edge, delta geom.Point, viewport geom.Size, minW, minH float64) geom.Rect {
	b := start

	switch {
	case edge.Has(geom.EdgeLeft):
		right := start.Right()
		left := geom.Clamp(start.Left+delta.X, 0, right)
		b.Width = right - left
		if b.Width < minW {
			b.Width = minW
		}
		b.Left = right - b.Width
	case edge.Has(geom.EdgeRight):
		b.Width = start.Width + delta.X
		if maxW := viewport.Width - start.Left; b.Width > maxW {
			b.Width = maxW
		}
		if b.Width < minW {
			b.Width = minW
		}
	}

	switch {
	case edge.Has(geom.EdgeTop):
		bottom := start.Bottom()
		top := geom.Clamp(start.Top+delta.Y, 0, bottom)
		b.Height = bottom - top
		if b.Height < minH {
			b.Height = minH
		}
		b.Top = bottom - b.Height
	case edge.Has(geom.EdgeBottom):
		b.Height = start.Height + delta.Y
		if maxH := viewport.Height - start.Top; b.Height > maxH {
			b.Height = maxH
		}
		if b.Height < minH {
			b.Height = minH
		}
	}

	return b
}

// DragBounds offsets start by delta and keeps the window fully on screen
// when it fits; an oversized window is pinned to the top-left corner.
func DragBounds(start geom.Rect, delta geom.Point, viewport geom.Size) geom.Rect {
	b := start
	b.Left = geom.Clamp(start.Left+delta.X, 0, viewport.Width-start.Width)
	b.Top = geom.Clamp(start.Top+delta.Y, 0, viewport.Height-start.Height)
	return b
}
