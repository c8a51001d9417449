// Package gesture classifies hand landmarks into discrete gesture states and
// turns state changes into start/hold/end edges.
package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/lingyi/internal/detector"
)

// ErrInvalidLandmarks is returned for a frame whose landmarks cannot be
// classified (non-finite coordinates or a collapsed hand).
var ErrInvalidLandmarks = errors.New("invalid landmarks")

// State is the discrete gesture recognised in one frame.
type State string

const (
	StateIdle        State = "idle"
	StatePointing    State = "pointing"
	StatePinching    State = "pinching"
	StateThreeFinger State = "three-finger"
	StateOpenPalm    State = "open-palm"
	StateFist        State = "fist"
)

// Actionable reports whether the state drives an interaction. Idle and
// pointing only move the cursor.
func (s State) Actionable() bool {
	switch s {
	case StatePinching, StateThreeFinger, StateOpenPalm, StateFist:
		return true
	}
	return false
}

// Thresholds are the fixed cut-offs applied to the hand-size normalized
// ratios. Pinch, three-finger and fist fire below their threshold; open
// palm fires above it.
type Thresholds struct {
	Pinch       float64
	ThreeFinger float64
	Fist        float64
	OpenPalm    float64
}

// DefaultThresholds returns the thresholds tuned for a webcam at arm's length.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pinch:       0.30,
		ThreeFinger: 0.35,
		Fist:        0.60,
		OpenPalm:    2.20,
	}
}

// Reading is the classifier output for one hand in one frame.
type Reading struct {
	State State `json:"state"`

	PinchDist       float64 `json:"pinchDist"`
	ThreeFingerDist float64 `json:"threeFingerDist"`
	FistScore       float64 `json:"fistScore"`
	OpenPalmScore   float64 `json:"openPalmScore"`

	IsPinching    bool `json:"isPinching"`
	IsThreeFinger bool `json:"isThreeFinger"`
	IsFist        bool `json:"isFist"`
	IsOpenPalm    bool `json:"isOpenPalm"`
}

// Classifier derives gesture readings from landmarks. It holds no per-frame
// state; edge detection lives in Tracker.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Thresholds returns the classifier's thresholds.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify computes the ratios for one hand and picks a state.
//
// All distances are planar and divided by the wrist to index MCP distance.
// The booleans are pure threshold tests with no hysteresis; the state takes
// the first match in the order fist, three-finger, pinch, open palm, and
// falls back to pointing.
func (c *Classifier) Classify(hand *detector.HandLandmarks) (Reading, error) {
	if hand == nil {
		return Reading{State: StateIdle}, nil
	}
	if err := hand.Validate(); err != nil {
		return Reading{State: StateIdle}, fmt.Errorf("%w: %v", ErrInvalidLandmarks, err)
	}

	n := hand.Normalize()
	p := n.Points
	centroid := n.PalmCentroid()

	var r Reading
	r.PinchDist = detector.Dist2D(p[detector.ThumbTip], p[detector.IndexTip])
	r.ThreeFingerDist = (r.PinchDist +
		detector.Dist2D(p[detector.ThumbTip], p[detector.MiddleTip]) +
		detector.Dist2D(p[detector.IndexTip], p[detector.MiddleTip])) / 3

	var toPalm, toWrist float64
	for _, tip := range detector.Fingertips {
		toPalm += detector.Dist2D(p[tip], centroid)
		toWrist += detector.Dist2D(p[tip], p[detector.Wrist])
	}
	r.FistScore = toPalm / float64(len(detector.Fingertips))
	r.OpenPalmScore = toWrist / float64(len(detector.Fingertips))

	r.IsPinching = r.PinchDist < c.thresholds.Pinch
	r.IsThreeFinger = r.ThreeFingerDist < c.thresholds.ThreeFinger
	r.IsFist = r.FistScore < c.thresholds.Fist
	r.IsOpenPalm = r.OpenPalmScore > c.thresholds.OpenPalm

	switch {
	case r.IsFist:
		r.State = StateFist
	case r.IsThreeFinger:
		r.State = StateThreeFinger
	case r.IsPinching:
		r.State = StatePinching
	case r.IsOpenPalm:
		r.State = StateOpenPalm
	default:
		r.State = StatePointing
	}

	return r, nil
}
