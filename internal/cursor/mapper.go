// Package cursor maps hand landmarks to smoothed screen coordinates.
package cursor

import (
	"github.com/ayusman/lingyi/internal/detector"
	"github.com/ayusman/lingyi/internal/geom"
)

// DefaultSmoothing is the fraction of the remaining distance covered per frame.
const DefaultSmoothing = 0.35

// Mapper converts normalized landmark positions into mirrored screen pixels
// and applies first-order exponential smoothing per axis.
//
// There is no velocity prediction and no deadband: jitter is attenuated,
// never suppressed.
type Mapper struct {
	viewport geom.Size
	factor   float64
	smooth   geom.Point
	seeded   bool
}

// NewMapper creates a Mapper for the given viewport. Factors outside (0, 1]
// fall back to DefaultSmoothing.
func NewMapper(viewport geom.Size, factor float64) *Mapper {
	if factor <= 0 || factor > 1 {
		factor = DefaultSmoothing
	}
	return &Mapper{viewport: viewport, factor: factor}
}

// SetViewport changes the target screen size. The smoothed position is kept.
func (m *Mapper) SetViewport(viewport geom.Size) {
	m.viewport = viewport
}

// Viewport returns the target screen size.
func (m *Mapper) Viewport() geom.Size {
	return m.viewport
}

// Project maps a normalized point to screen pixels, mirroring horizontally
// so the cursor follows the hand as in a mirror: x=0 lands on the right
// edge and x=1 on the left.
func (m *Mapper) Project(p detector.Point3D) geom.Point {
	return geom.Point{
		X: (1 - p.X) * m.viewport.Width,
		Y: p.Y * m.viewport.Height,
	}
}

// Smooth advances the smoothed position one frame toward raw and returns it.
// The first call seeds the smoothed position with raw.
func (m *Mapper) Smooth(raw geom.Point) geom.Point {
	if !m.seeded {
		m.smooth = raw
		m.seeded = true
		return m.smooth
	}
	m.smooth.X += (raw.X - m.smooth.X) * m.factor
	m.smooth.Y += (raw.Y - m.smooth.Y) * m.factor
	return m.smooth
}

// Update projects p and smooths it, returning both positions.
func (m *Mapper) Update(p detector.Point3D) (raw, smooth geom.Point) {
	raw = m.Project(p)
	return raw, m.Smooth(raw)
}

// Position returns the current smoothed position.
func (m *Mapper) Position() geom.Point {
	return m.smooth
}

// Reset drops the smoothed position; the next frame reseeds it.
func (m *Mapper) Reset() {
	m.smooth = geom.Point{}
	m.seeded = false
}

// Anchor picks the landmark that drives the cursor: the palm centroid while
// the whole hand is the pointer (fist drag, open palm scroll), otherwise the
// index fingertip.
func Anchor(hand *detector.HandLandmarks, palm bool) detector.Point3D {
	if palm {
		return hand.PalmCentroid()
	}
	return hand.Points[detector.IndexTip]
}
