package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	motionBlurKernel = 21
	motionPixelDiff  = 25
)

// MotionDetector compares each frame against the previous one and reports
// whether enough of the picture changed. The camera source uses it to skip
// hand tracking while nobody is in front of the camera.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector reports motion when more than threshold percent of the
// pixels differ between two blurred grayscale frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect returns whether frame moved relative to the last call and the
// changed pixel percentage. The first frame only primes the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(motionBlurKernel, motionBlurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed {
		gray.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, motionPixelDiff, 255, gocv.ThresholdBinary)

	changed := 100 * float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols())
	gray.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset forgets the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
}
