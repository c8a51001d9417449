package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// pose builds a right hand from 21 (x, y) pairs in landmark order.
func pose(xy [NumLandmarks][2]float64) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	for i, p := range xy {
		h.Points[i] = Point3D{X: p[0], Y: p[1]}
	}
	return h
}

// PointingLandmarks returns a hand with the index finger extended and the
// other fingers curled.
func PointingLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.55, 0.76}, {0.60, 0.70}, {0.60, 0.64}, {0.57, 0.62},
		{0.55, 0.68}, {0.56, 0.56}, {0.565, 0.48}, {0.57, 0.40},
		{0.50, 0.66}, {0.50, 0.60}, {0.49, 0.65}, {0.49, 0.68},
		{0.45, 0.68}, {0.45, 0.62}, {0.45, 0.67}, {0.45, 0.70},
		{0.40, 0.70}, {0.41, 0.65}, {0.41, 0.69}, {0.41, 0.72},
	})
}

// PinchLandmarks returns a hand with thumb tip touching index tip.
func PinchLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.55, 0.76}, {0.60, 0.70}, {0.62, 0.64}, {0.62, 0.58},
		{0.55, 0.68}, {0.57, 0.58}, {0.60, 0.54}, {0.61, 0.56},
		{0.50, 0.66}, {0.50, 0.60}, {0.49, 0.65}, {0.49, 0.68},
		{0.45, 0.68}, {0.45, 0.62}, {0.45, 0.67}, {0.45, 0.70},
		{0.40, 0.70}, {0.41, 0.65}, {0.41, 0.69}, {0.41, 0.72},
	})
}

// ThreeFingerLandmarks returns a hand with thumb, index and middle tips
// brought together.
func ThreeFingerLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.55, 0.76}, {0.60, 0.70}, {0.61, 0.63}, {0.59, 0.57},
		{0.55, 0.68}, {0.57, 0.60}, {0.585, 0.56}, {0.58, 0.555},
		{0.50, 0.66}, {0.52, 0.58}, {0.55, 0.55}, {0.565, 0.565},
		{0.45, 0.68}, {0.45, 0.62}, {0.45, 0.67}, {0.45, 0.70},
		{0.40, 0.70}, {0.41, 0.65}, {0.41, 0.69}, {0.41, 0.72},
	})
}

// FistLandmarks returns a closed fist with every fingertip near the palm.
func FistLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.55, 0.76}, {0.56, 0.70}, {0.53, 0.67}, {0.50, 0.66},
		{0.55, 0.68}, {0.56, 0.64}, {0.55, 0.67}, {0.54, 0.70},
		{0.50, 0.66}, {0.50, 0.63}, {0.49, 0.68}, {0.49, 0.71},
		{0.45, 0.68}, {0.45, 0.65}, {0.45, 0.70}, {0.45, 0.72},
		{0.40, 0.70}, {0.40, 0.68}, {0.41, 0.71}, {0.41, 0.73},
	})
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.55, 0.75}, {0.62, 0.70}, {0.68, 0.65}, {0.73, 0.60},
		{0.55, 0.68}, {0.57, 0.55}, {0.58, 0.45}, {0.58, 0.35},
		{0.50, 0.66}, {0.50, 0.52}, {0.50, 0.40}, {0.50, 0.28},
		{0.45, 0.68}, {0.43, 0.55}, {0.42, 0.45}, {0.42, 0.35},
		{0.40, 0.70}, {0.37, 0.60}, {0.35, 0.50}, {0.34, 0.42},
	})
}
