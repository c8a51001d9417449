// Package detector provides hand detection interfaces and landmark types for gesture input.
package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Fingertips lists the five fingertip indices, thumb first.
var Fingertips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// palmBase lists the points averaged into the palm centroid.
var palmBase = [5]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// ErrDegenerateHand is returned when the landmarks collapse to a point and
// cannot be normalized by hand size.
var ErrDegenerateHand = errors.New("degenerate hand: zero hand size")

// ErrLandmarkCount is returned when decoding a hand whose point list is not
// exactly NumLandmarks long.
var ErrLandmarkCount = errors.New("wrong number of hand landmarks")

// Point3D represents a 3D point with normalized image coordinates.
// X and Y are in [0, 1] relative to the frame; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// jsonHand is the wire form of HandLandmarks, with the points as a slice so
// the count can be checked.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// UnmarshalJSON rejects hands that do not carry exactly NumLandmarks points.
func (h *HandLandmarks) UnmarshalJSON(data []byte) error {
	var raw jsonHand
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Points) != NumLandmarks {
		return fmt.Errorf("%w: got %d, want %d", ErrLandmarkCount, len(raw.Points), NumLandmarks)
	}

	*h = HandLandmarks{Handedness: raw.Handedness, Score: raw.Score}
	copy(h.Points[:], raw.Points)
	return nil
}

// DecodeHands decodes each raw hand. Hands with the wrong landmark count are
// skipped and counted; any other decode error is returned.
func DecodeHands(raw []json.RawMessage) ([]HandLandmarks, int, error) {
	hands := make([]HandLandmarks, 0, len(raw))
	skipped := 0
	for i, r := range raw {
		var h HandLandmarks
		if err := json.Unmarshal(r, &h); err != nil {
			if errors.Is(err, ErrLandmarkCount) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("hand %d: %w", i, err)
		}
		hands = append(hands, h)
	}
	return hands, skipped, nil
}

// Dist2D returns the planar distance between a and b, ignoring depth.
func Dist2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// HandSize returns the wrist to index MCP distance used to normalize all
// other distances.
func (h *HandLandmarks) HandSize() float64 {
	return Dist2D(h.Points[Wrist], h.Points[IndexMCP])
}

// PalmCentroid returns the mean of the wrist and the four finger MCPs.
func (h *HandLandmarks) PalmCentroid() Point3D {
	var c Point3D
	for _, i := range palmBase {
		c.X += h.Points[i].X
		c.Y += h.Points[i].Y
		c.Z += h.Points[i].Z
	}
	n := float64(len(palmBase))
	return Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// Validate checks that every coordinate is finite and the hand has a size.
func (h *HandLandmarks) Validate() error {
	for i, p := range h.Points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("landmark %d is not finite", i)
		}
	}
	if h.HandSize() < 1e-10 {
		return ErrDegenerateHand
	}
	return nil
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the planar distance from wrist to index finger MCP is 1.0.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := h.HandSize()

	// Avoid division by zero
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}

// Translate returns a copy of the hand moved by (dx, dy) in normalized
// image coordinates.
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
