// Package desktop is the in-memory window manager driven by gestures.
//
// It owns the window rectangles, z-order and viewport, answers hit-tests for
// the dispatcher and applies the input the dispatcher synthesizes.
package desktop

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/dispatch"
	"github.com/ayusman/lingyi/internal/geom"
	"github.com/ayusman/lingyi/internal/logging"
)

// ErrWindowNotFound is returned for an unknown window ID.
var ErrWindowNotFound = errors.New("window not found")

// maxEvents bounds the in-memory input log.
const maxEvents = 256

// EventKind names an input applied to the desktop.
type EventKind string

const (
	EventClick       EventKind = "click"
	EventContextMenu EventKind = "context-menu"
	EventScroll      EventKind = "scroll"
	EventMove        EventKind = "move"
	EventResize      EventKind = "resize"
)

// Event is one applied input.
type Event struct {
	Kind     EventKind  `json:"kind"`
	WindowID string     `json:"windowId,omitempty"`
	Point    geom.Point `json:"point"`
	Bounds   geom.Rect  `json:"bounds"`
	Delta    float64    `json:"delta,omitempty"`
	At       time.Time  `json:"at"`
}

// Desktop is a concurrency-safe window manager.
type Desktop struct {
	mu       sync.RWMutex
	viewport geom.Size
	minW     float64
	minH     float64
	windows  map[string]*dispatch.Window
	topZ     int
	pointer  geom.Point
	events   []Event
	log      zerolog.Logger
}

// New creates an empty desktop. Windows can never be sized below minW x minH
// through SetBounds.
func New(viewport geom.Size, minW, minH float64) *Desktop {
	return &Desktop{
		viewport: viewport,
		minW:     minW,
		minH:     minH,
		windows:  make(map[string]*dispatch.Window),
		log:      logging.Module("desktop"),
	}
}

// Open adds a window on top of the stack and returns it.
func (d *Desktop) Open(title string, bounds geom.Rect) dispatch.Window {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.topZ++
	w := &dispatch.Window{
		ID:     uuid.NewString(),
		Title:  title,
		Bounds: Fit(bounds, d.viewport, d.minW, d.minH),
		Z:      d.topZ,
	}
	d.windows[w.ID] = w
	d.log.Debug().Str("window", w.ID).Str("title", title).Msg("window opened")
	return *w
}

// Restore puts back a previously saved window, keeping its ID and z.
func (d *Desktop) Restore(w dispatch.Window) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w.Bounds = Fit(w.Bounds, d.viewport, d.minW, d.minH)
	d.windows[w.ID] = &w
	if w.Z > d.topZ {
		d.topZ = w.Z
	}
}

// Close removes a window.
func (d *Desktop) Close(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.windows[id]; !ok {
		return ErrWindowNotFound
	}
	delete(d.windows, id)
	return nil
}

// Get returns a single window.
func (d *Desktop) Get(id string) (dispatch.Window, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	w, ok := d.windows[id]
	if !ok {
		return dispatch.Window{}, ErrWindowNotFound
	}
	return *w, nil
}

// Windows returns a copy of all windows, bottom of the stack first.
func (d *Desktop) Windows() []dispatch.Window {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]dispatch.Window, 0, len(d.windows))
	for _, w := range d.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

// Viewport returns the screen size.
func (d *Desktop) Viewport() geom.Size {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.viewport
}

// SetViewport changes the screen size and refits every window into it.
func (d *Desktop) SetViewport(vp geom.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.viewport = vp
	for _, w := range d.windows {
		w.Bounds = Fit(w.Bounds, vp, d.minW, d.minH)
	}
}

// WindowAt returns the topmost window containing p.
func (d *Desktop) WindowAt(p geom.Point) (dispatch.Window, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	w := d.windowAt(p)
	if w == nil {
		return dispatch.Window{}, false
	}
	return *w, true
}

func (d *Desktop) windowAt(p geom.Point) *dispatch.Window {
	var top *dispatch.Window
	for _, w := range d.windows {
		if w.Bounds.Contains(p) && (top == nil || w.Z > top.Z) {
			top = w
		}
	}
	return top
}

// Focus raises a window to the top of the stack.
func (d *Desktop) Focus(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.windows[id]
	if !ok {
		return ErrWindowNotFound
	}
	d.raise(w)
	return nil
}

func (d *Desktop) raise(w *dispatch.Window) {
	if w.Z == d.topZ {
		return
	}
	d.topZ++
	w.Z = d.topZ
}

// SetBounds places a window, fitting it into the viewport and the minimum
// size. It returns the bounds actually applied.
func (d *Desktop) SetBounds(id string, b geom.Rect) (geom.Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.windows[id]
	if !ok {
		return geom.Rect{}, ErrWindowNotFound
	}
	w.Bounds = Fit(b, d.viewport, d.minW, d.minH)
	return w.Bounds, nil
}

// Pointer returns the last pointer position.
func (d *Desktop) Pointer() geom.Point {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pointer
}

// Events returns the most recent inputs, oldest first.
func (d *Desktop) Events() []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

func (d *Desktop) record(e Event) {
	e.At = time.Now()
	d.events = append(d.events, e)
	if len(d.events) > maxEvents {
		d.events = d.events[len(d.events)-maxEvents:]
	}
}

// MovePointer records the pointer position.
func (d *Desktop) MovePointer(_ context.Context, p geom.Point) error {
	d.mu.Lock()
	d.pointer = p
	d.mu.Unlock()
	return nil
}

// Click raises the window under p, if any.
func (d *Desktop) Click(_ context.Context, p geom.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pointer = p
	e := Event{Kind: EventClick, Point: p}
	if w := d.windowAt(p); w != nil {
		d.raise(w)
		e.WindowID = w.ID
		e.Bounds = w.Bounds
	}
	d.record(e)
	return nil
}

// ContextMenu records a secondary click on the window under p.
func (d *Desktop) ContextMenu(_ context.Context, p geom.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := Event{Kind: EventContextMenu, Point: p}
	if w := d.windowAt(p); w != nil {
		e.WindowID = w.ID
		e.Bounds = w.Bounds
	}
	d.record(e)
	return nil
}

// Scroll records a vertical scroll over the window under p.
func (d *Desktop) Scroll(_ context.Context, p geom.Point, dy float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := Event{Kind: EventScroll, Point: p, Delta: dy}
	if w := d.windowAt(p); w != nil {
		e.WindowID = w.ID
	}
	d.record(e)
	return nil
}

// MoveWindow applies dragged bounds and raises the window.
func (d *Desktop) MoveWindow(_ context.Context, id string, b geom.Rect) error {
	return d.apply(EventMove, id, b)
}

// ResizeWindow applies resized bounds and raises the window.
func (d *Desktop) ResizeWindow(_ context.Context, id string, _ geom.Edge, b geom.Rect) error {
	return d.apply(EventResize, id, b)
}

func (d *Desktop) apply(kind EventKind, id string, b geom.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.windows[id]
	if !ok {
		return ErrWindowNotFound
	}
	w.Bounds = b
	d.raise(w)
	d.record(Event{Kind: kind, WindowID: id, Bounds: b})
	return nil
}

// Fit sizes b to at least minW x minH and moves it inside the viewport. The
// minimum size wins when the viewport is smaller.
func Fit(b geom.Rect, vp geom.Size, minW, minH float64) geom.Rect {
	if b.Width > vp.Width {
		b.Width = vp.Width
	}
	if b.Width < minW {
		b.Width = minW
	}
	if b.Height > vp.Height {
		b.Height = vp.Height
	}
	if b.Height < minH {
		b.Height = minH
	}
	b.Left = geom.Clamp(b.Left, 0, vp.Width-b.Width)
	b.Top = geom.Clamp(b.Top, 0, vp.Height-b.Height)
	return b
}

// DefaultTitles are the applications opened on a fresh desktop.
var DefaultTitles = []string{"Files", "Notes", "Photos", "Settings"}

// Seed opens the default applications in a cascade.
func (d *Desktop) Seed() []dispatch.Window {
	vp := d.Viewport()
	w := geom.Clamp(vp.Width*0.4, d.minW, vp.Width)
	h := geom.Clamp(vp.Height*0.45, d.minH, vp.Height)

	out := make([]dispatch.Window, 0, len(DefaultTitles))
	for i, title := range DefaultTitles {
		off := float64(i) * 48
		out = append(out, d.Open(title, geom.Rect{Left: 80 + off, Top: 60 + off, Width: w, Height: h}))
	}
	return out
}

var (
	_ dispatch.Surface   = (*Desktop)(nil)
	_ dispatch.InputSink = (*Desktop)(nil)
)
