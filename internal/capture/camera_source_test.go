package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/lingyi/internal/detector"
)

func TestCameraSource_YieldsDetectedHands(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	pinch := detector.PinchLandmarks()
	det.SetHands([]detector.HandLandmarks{pinch})

	src, err := OpenCameraSource(NewMockCamera([]*gocv.Mat{&frame}, true), det, CameraSourceConfig{})
	if err != nil {
		t.Fatalf("OpenCameraSource() error = %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 1; i <= 3; i++ {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if f.Seq != uint64(i) || len(f.Hands) != 1 {
			t.Errorf("frame %d = seq %d with %d hands", i, f.Seq, len(f.Hands))
		}
	}
	if det.Calls() != 3 {
		t.Errorf("detector called %d times, want 3", det.Calls())
	}
}

func TestCameraSource_SkipsDetectorErrors(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	det.SetError(errors.New("tracker hiccup"))

	src, _ := OpenCameraSource(NewMockCamera([]*gocv.Mat{&frame}, true), det, CameraSourceConfig{})
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if _, err := src.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() error = %v, want to keep skipping until the deadline", err)
	}
	if det.Calls() == 0 {
		t.Error("detector should have been tried")
	}
}

func TestCameraSource_ClosedCameraEnds(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	src, _ := OpenCameraSource(cam, detector.NewMockDetector(), CameraSourceConfig{})
	defer src.Close()
	cam.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := src.Next(ctx); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("Next() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCameraSource_PublishesPreviewWhenWatched(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	preview := NewPreview()
	src, _ := OpenCameraSource(NewMockCamera([]*gocv.Mat{&frame}, true), detector.NewMockDetector(),
		CameraSourceConfig{Preview: preview})
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	src.Next(ctx)
	if _, seq := preview.Latest(); seq != 0 {
		t.Error("nothing should be encoded without viewers")
	}

	release := preview.Watch()
	defer release()
	src.Next(ctx)

	jpeg, seq := preview.Latest()
	if seq != 1 || len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Errorf("preview seq %d, %d bytes; want one JPEG", seq, len(jpeg))
	}
}

func TestCameraSource_IdlesWithoutMotion(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	src, _ := OpenCameraSource(NewMockCamera([]*gocv.Mat{&frame}, true), det,
		CameraSourceConfig{MotionThreshold: 1, IdleAfter: time.Millisecond})
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// First frame primes motion; the static picture then goes idle.
	for i := 0; i < 3; i++ {
		if _, err := src.Next(ctx); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
	}
	if src.Active() {
		t.Error("source should be idle on a static picture with no hands")
	}
}
