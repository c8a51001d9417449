package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/detector"
	"github.com/ayusman/lingyi/internal/logging"
)

// ReplaySource reads frames recorded as JSON lines.
type ReplaySource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	paced   bool
	line    int
	last    time.Time
	log     zerolog.Logger
}

// replayLine is a recorded frame with its hands left raw, so a hand with the
// wrong landmark count drops that hand rather than the whole line.
type replayLine struct {
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Hands     []json.RawMessage `json:"hands"`
}

// NewReplaySource reads frames from r. With paced set, Next sleeps for the
// recorded gap between frames.
func NewReplaySource(r io.Reader, paced bool) *ReplaySource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	s := &ReplaySource{scanner: sc, paced: paced, log: logging.Module("capture")}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenReplay opens a JSONL recording on disk.
func OpenReplay(path string, paced bool) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return NewReplaySource(f, paced), nil
}

func (s *ReplaySource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Frame{}, fmt.Errorf("read replay line %d: %w", s.line+1, err)
			}
			return Frame{}, io.EOF
		}
		s.line++

		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rl replayLine
		if err := json.Unmarshal(raw, &rl); err != nil {
			return Frame{}, fmt.Errorf("decode replay line %d: %w", s.line, err)
		}
		hands, skipped, err := detector.DecodeHands(rl.Hands)
		if err != nil {
			return Frame{}, fmt.Errorf("decode replay line %d: %w", s.line, err)
		}
		if skipped > 0 {
			s.log.Warn().Int("line", s.line).Int("skipped", skipped).Msg("dropped hands with wrong landmark count")
		}

		f := Frame{Seq: rl.Seq, Timestamp: rl.Timestamp, Hands: hands}
		if f.Seq == 0 {
			f.Seq = uint64(s.line)
		}

		if s.paced && !s.last.IsZero() && f.Timestamp.After(s.last) {
			t := time.NewTimer(f.Timestamp.Sub(s.last))
			select {
			case <-ctx.Done():
				t.Stop()
				return Frame{}, ctx.Err()
			case <-t.C:
			}
		}
		s.last = f.Timestamp

		return f, nil
	}
}

func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Recorder passes frames through from src and appends each one to w as a
// JSON line, producing files ReplaySource can read back.
type Recorder struct {
	src Source
	mu  sync.Mutex
	enc *json.Encoder
	w   io.Writer
}

// NewRecorder records every frame src yields.
func NewRecorder(src Source, w io.Writer) *Recorder {
	return &Recorder{src: src, enc: json.NewEncoder(w), w: w}
}

func (r *Recorder) Next(ctx context.Context) (Frame, error) {
	f, err := r.src.Next(ctx)
	if err != nil {
		return f, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(f); err != nil {
		return f, fmt.Errorf("record frame %d: %w", f.Seq, err)
	}
	return f, nil
}

// Close closes the wrapped source and, if it is closable, the writer.
func (r *Recorder) Close() error {
	err := r.src.Close()
	if c, ok := r.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
