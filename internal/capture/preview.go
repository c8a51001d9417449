package capture

import (
	"context"
	"sync"
	"sync/atomic"
)

// Preview holds the latest JPEG-encoded camera frame for the MJPEG stream.
// The camera only encodes frames while at least one viewer is watching.
type Preview struct {
	mu       sync.Mutex
	jpeg     []byte
	seq      uint64
	notify   chan struct{}
	watchers atomic.Int32
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{notify: make(chan struct{})}
}

// Watch registers a viewer. Call the returned func when done.
func (p *Preview) Watch() (release func()) {
	p.watchers.Add(1)
	var once sync.Once
	return func() { once.Do(func() { p.watchers.Add(-1) }) }
}

// Watched reports whether anyone is viewing.
func (p *Preview) Watched() bool {
	return p.watchers.Load() > 0
}

// Publish stores a new frame and wakes waiting viewers.
func (p *Preview) Publish(jpeg []byte) {
	p.mu.Lock()
	p.jpeg = jpeg
	p.seq++
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()
}

// Latest returns the newest frame and its sequence number.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Wait blocks until a frame newer than after is published.
func (p *Preview) Wait(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after {
			jpeg, seq := p.jpeg, p.seq
			p.mu.Unlock()
			return jpeg, seq, nil
		}
		ch := p.notify
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-ch:
		}
	}
}
