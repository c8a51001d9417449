// Package dispatch turns gesture edges into pointer and window actions.
//
// The dispatcher never touches a UI directly: hit-testing reads a Surface
// and every effect goes through an InputSink, so the logic runs the same
// against the in-memory desktop, an OS pointer plugin or a test recorder.
package dispatch

import (
	"context"
	"errors"
	"sort"

	"github.com/ayusman/lingyi/internal/geom"
)

// Window is the dispatcher's view of one top-level window.
type Window struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Bounds geom.Rect `json:"bounds"`
	Z      int       `json:"z"`
}

// Surface exposes the windows and screen size used for hit-testing.
type Surface interface {
	Windows() []Window
	Viewport() geom.Size
}

// InputSink receives the synthesized input.
type InputSink interface {
	MovePointer(ctx context.Context, p geom.Point) error
	Click(ctx context.Context, p geom.Point) error
	ContextMenu(ctx context.Context, p geom.Point) error
	Scroll(ctx context.Context, p geom.Point, dy float64) error
	MoveWindow(ctx context.Context, id string, bounds geom.Rect) error
	ResizeWindow(ctx context.Context, id string, edge geom.Edge, bounds geom.Rect) error
}

// byZDesc returns the windows ordered topmost first.
func byZDesc(ws []Window) []Window {
	out := make([]Window, len(ws))
	copy(out, ws)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Z > out[j].Z })
	return out
}

// Tee fans every call out to all sinks in order and joins their errors.
func Tee(sinks ...InputSink) InputSink {
	return teeSink(sinks)
}

type teeSink []InputSink

func (t teeSink) each(fn func(InputSink) error) error {
	var errs []error
	for _, s := range t {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeSink) MovePointer(ctx context.Context, p geom.Point) error {
	return t.each(func(s InputSink) error { return s.MovePointer(ctx, p) })
}

func (t teeSink) Click(ctx context.Context, p geom.Point) error {
	return t.each(func(s InputSink) error { return s.Click(ctx, p) })
}

func (t teeSink) ContextMenu(ctx context.Context, p geom.Point) error {
	return t.each(func(s InputSink) error { return s.ContextMenu(ctx, p) })
}

func (t teeSink) Scroll(ctx context.Context, p geom.Point, dy float64) error {
	return t.each(func(s InputSink) error { return s.Scroll(ctx, p, dy) })
}

func (t teeSink) MoveWindow(ctx context.Context, id string, bounds geom.Rect) error {
	return t.each(func(s InputSink) error { return s.MoveWindow(ctx, id, bounds) })
}

func (t teeSink) ResizeWindow(ctx context.Context, id string, edge geom.Edge, bounds geom.Rect) error {
	return t.each(func(s InputSink) error { return s.ResizeWindow(ctx, id, edge, bounds) })
}
