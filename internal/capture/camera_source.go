package capture

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/lingyi/internal/detector"
	"github.com/ayusman/lingyi/internal/logging"
)

// CameraSourceConfig tunes the live source.
type CameraSourceConfig struct {
	// MotionThreshold is the changed-pixel percentage that wakes tracking.
	// Zero keeps tracking on for every frame.
	MotionThreshold float64
	// IdleAfter drops back to IdleFPS after this long without motion or hands.
	IdleAfter time.Duration
	// Preview, when set, receives JPEG frames while someone is watching.
	Preview *Preview
}

// CameraSource reads the webcam, runs the hand detector and yields frames.
// While nothing moves and no hand is visible it slows to IdleFPS and skips
// the detector, emitting hand-less frames.
type CameraSource struct {
	camera   Camera
	detector detector.Detector
	motion   *MotionDetector
	preview  *Preview
	idle     time.Duration

	ticker     *time.Ticker
	active     bool
	lastMotion time.Time
	handSeen   bool
	seq        uint64
	log        zerolog.Logger
}

// OpenCameraSource opens cam and returns a source reading from it.
func OpenCameraSource(cam Camera, det detector.Detector, cfg CameraSourceConfig) (*CameraSource, error) {
	if err := cam.Open(); err != nil {
		return nil, err
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = 2 * time.Second
	}

	s := &CameraSource{
		camera:     cam,
		detector:   det,
		preview:    cfg.Preview,
		idle:       cfg.IdleAfter,
		active:     true,
		lastMotion: time.Now(),
		log:        logging.Module("capture"),
	}
	if cfg.MotionThreshold > 0 {
		s.motion = NewMotionDetector(cfg.MotionThreshold)
	}

	cam.SetFPS(ActiveFPS)
	s.ticker = time.NewTicker(time.Second / ActiveFPS)
	return s, nil
}

// Next waits for the next camera tick and returns its frame. Read and
// detector failures are logged and the tick skipped; a closed camera ends
// the source with ErrCameraNotOpen.
func (s *CameraSource) Next(ctx context.Context) (Frame, error) {
	for {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-s.ticker.C:
		}

		mat, err := s.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrCameraNotOpen) {
				return Frame{}, err
			}
			s.log.Warn().Err(err).Msg("read frame")
			continue
		}

		f, ok := s.process(mat)
		mat.Close()
		if ok {
			return f, nil
		}
	}
}

func (s *CameraSource) process(mat *gocv.Mat) (Frame, bool) {
	if s.preview != nil && s.preview.Watched() {
		s.publish(mat)
	}

	now := time.Now()
	moving := true
	if s.motion != nil {
		moving, _ = s.motion.Detect(mat)
	}
	if moving || s.handSeen {
		s.lastMotion = now
		s.setActive(true)
	} else if s.active && now.Sub(s.lastMotion) > s.idle {
		s.setActive(false)
	}

	f := Frame{Timestamp: now}
	if s.active && s.detector != nil {
		hands, err := s.detector.Detect(mat)
		if err != nil {
			s.log.Debug().Err(err).Msg("detect hands")
			return Frame{}, false
		}
		s.handSeen = len(hands) > 0
		f.Hands = hands
	}

	s.seq++
	f.Seq = s.seq
	return f, true
}

func (s *CameraSource) publish(mat *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		s.log.Debug().Err(err).Msg("encode preview")
		return
	}
	s.preview.Publish(append([]byte(nil), buf.GetBytes()...))
	buf.Close()
}

func (s *CameraSource) setActive(active bool) {
	if s.active == active {
		return
	}
	s.active = active

	fps := IdleFPS
	if active {
		fps = ActiveFPS
	}
	s.camera.SetFPS(fps)
	s.ticker.Reset(time.Second / time.Duration(fps))
	s.log.Debug().Int("fps", fps).Bool("active", active).Msg("camera rate changed")
}

// Active reports whether the detector is running on every frame.
func (s *CameraSource) Active() bool {
	return s.active
}

// Close stops the ticker and closes the camera. The detector is left to its
// owner.
func (s *CameraSource) Close() error {
	s.ticker.Stop()
	if s.motion != nil {
		s.motion.Close()
	}
	return s.camera.Close()
}
