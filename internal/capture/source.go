package capture

import (
	"context"
	"io"
	"time"

	"github.com/ayusman/lingyi/internal/detector"
)

// Frame is one tick of hand tracking output.
type Frame struct {
	Seq       uint64                   `json:"seq"`
	Timestamp time.Time                `json:"timestamp"`
	Hands     []detector.HandLandmarks `json:"hands"`
}

// Source yields frames in order. Next blocks until a frame is available and
// returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// SliceSource replays an in-memory frame list.
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource numbers frames that have no sequence number and stamps
// frames without a timestamp.
func NewSliceSource(frames []Frame) *SliceSource {
	out := make([]Frame, len(frames))
	now := time.Now()
	for i, f := range frames {
		if f.Seq == 0 {
			f.Seq = uint64(i + 1)
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = now.Add(time.Duration(i) * time.Second / ActiveFPS)
		}
		out[i] = f
	}
	return &SliceSource{frames: out}
}

// HandFrames builds one frame per entry. A nil entry is a frame without hands.
func HandFrames(hands ...*detector.HandLandmarks) []Frame {
	frames := make([]Frame, len(hands))
	for i, h := range hands {
		if h != nil {
			frames[i].Hands = []detector.HandLandmarks{*h}
		}
	}
	return frames
}

func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error { return nil }
