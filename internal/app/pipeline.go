package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ayusman/lingyi/internal/capture"
)

// Run pulls frames from src until it is exhausted or ctx is done. io.EOF
// ends the run cleanly.
func (a *App) Run(ctx context.Context, src capture.Source) error {
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		a.Update(ctx, frame)
	}
}

// Start runs the pipeline on src in the background. Calling Start while
// already running is a no-op. src is closed when the run ends, after which
// Start may be called again with a new source.
func (a *App) Start(src capture.Source) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	a.stopCh, a.doneCh, a.runErr = stopCh, doneCh, nil

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-doneCh:
		}
	}()

	go func() {
		defer close(doneCh)
		defer cancel()

		err := a.Run(ctx, src)
		if cerr := src.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("error closing frame source")
		}
		if err != nil {
			a.log.Error().Err(err).Msg("detection pipeline failed")
		} else {
			a.log.Info().Msg("frame source finished")
		}

		a.mu.Lock()
		a.runErr = err
		if a.stopCh == stopCh {
			a.stopCh = nil
		}
		a.mu.Unlock()
	}()

	a.log.Info().Msg("detection pipeline started")
	return nil
}

// Stop halts a pipeline started with Start and waits for it to exit.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
	a.log.Info().Msg("detection pipeline stopped")
}

// Done is closed when the latest background run ends. It stays closed after
// the source is exhausted and is nil before Start or after Stop.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doneCh
}

// Err returns the error that ended the last background run.
func (a *App) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runErr
}
