// Package app owns the per-frame gesture pipeline of LingYi: classify the
// hand, move the cursor, turn state changes into desktop input and publish
// the resulting GestureState.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/capture"
	"github.com/ayusman/lingyi/internal/cursor"
	"github.com/ayusman/lingyi/internal/detector"
	"github.com/ayusman/lingyi/internal/dispatch"
	"github.com/ayusman/lingyi/internal/geom"
	"github.com/ayusman/lingyi/internal/gesture"
	"github.com/ayusman/lingyi/internal/logging"
	"github.com/ayusman/lingyi/internal/metrics"
	"github.com/ayusman/lingyi/internal/store"
)

// subscriberBuffer is the per-subscriber queue length. A full queue drops
// the newest state.
const subscriberBuffer = 8

// pruneEvery is how many journaled events pass between retention sweeps.
const pruneEvery = 100

// Config holds configuration options for the application.
type Config struct {
	Thresholds gesture.Thresholds
	Smoothing  float64
	Dispatch   dispatch.Config

	// CancelOnHandLoss ends every session on a frame without a usable hand.
	// When false, sessions stay open until the hand returns.
	CancelOnHandLoss bool

	// Store journals actions and persists window layout. Optional.
	Store *store.Store
	// EventRetention caps the journal size. Zero keeps everything.
	EventRetention int

	// Metrics defaults to a private registry when nil.
	Metrics *metrics.Manager
}

// DefaultConfig returns the stock thresholds and dispatcher settings.
func DefaultConfig() Config {
	return Config{
		Thresholds: gesture.DefaultThresholds(),
		Smoothing:  cursor.DefaultSmoothing,
		Dispatch:   dispatch.DefaultConfig(),
	}
}

// GestureState is everything derived from one frame.
type GestureState struct {
	gesture.Reading

	CursorPos   geom.Point `json:"cursorPos"`
	SmoothPos   geom.Point `json:"smoothPos"`
	HandPresent bool       `json:"handPresent"`
	Seq         uint64     `json:"seq"`
	Timestamp   time.Time  `json:"timestamp"`

	Actions   []dispatch.Action        `json:"actions,omitempty"`
	Landmarks *detector.HandLandmarks `json:"landmarks,omitempty"`
}

// App is the gesture pipeline. Update must be called from one goroutine at
// a time; the accessors are safe for concurrent use.
type App struct {
	config     Config
	classifier *gesture.Classifier
	tracker    *gesture.Tracker
	mapper     *cursor.Mapper
	palmAnchor bool // anchor of the last mapper update
	dispatcher *dispatch.Dispatcher
	surface    dispatch.Surface
	sink       dispatch.InputSink
	metrics    *metrics.Manager
	log        zerolog.Logger

	mu        sync.RWMutex
	enabled   bool
	settings  store.Settings
	listeners []func(store.Settings)
	state     GestureState
	stopCh    chan struct{}
	doneCh    chan struct{}
	runErr    error

	subMu sync.Mutex
	subs  map[chan GestureState]struct{}

	journaled int
}

// New creates an enabled App that reads windows from surface and sends
// input to sink.
func New(config Config, surface dispatch.Surface, sink dispatch.InputSink) *App {
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}

	a := &App{
		config:     config,
		classifier: gesture.NewClassifier(config.Thresholds),
		tracker:    gesture.NewTracker(),
		mapper:     cursor.NewMapper(surface.Viewport(), config.Smoothing),
		dispatcher: dispatch.New(config.Dispatch, surface, sink),
		surface:    surface,
		sink:       sink,
		metrics:    config.Metrics,
		log:        logging.Module("app"),
		enabled:    true,
		settings:   store.DefaultSettings(),
		state:      GestureState{Reading: gesture.Reading{State: gesture.StateIdle}},
		subs:       make(map[chan GestureState]struct{}),
	}
	a.metrics.SetEnabled(true)
	return a
}

// SetEnabled pauses or resumes gesture processing. Sessions open at the
// time are resumed or ended by the first frame after re-enabling.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.settings.Enabled = enabled
	a.mu.Unlock()

	a.metrics.SetEnabled(enabled)
	if changed {
		a.log.Info().Bool("enabled", enabled).Msg("gesture control toggled")
	}
}

// IsEnabled returns whether gesture processing is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Snapshot returns the latest GestureState.
func (a *App) Snapshot() GestureState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Dispatcher exposes the session state for inspection.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Metrics returns the metrics manager in use.
func (a *App) Metrics() *metrics.Manager {
	return a.metrics
}

// Update runs one frame through the pipeline and returns the new state.
// While disabled the frame is ignored and the previous state returned.
func (a *App) Update(ctx context.Context, frame capture.Frame) GestureState {
	if !a.IsEnabled() {
		return a.Snapshot()
	}

	start := time.Now()
	a.mapper.SetViewport(a.surface.Viewport())

	st := GestureState{
		Reading:   gesture.Reading{State: gesture.StateIdle},
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp,
	}

	hand, reading := a.primaryHand(frame)
	if hand == nil {
		st.CursorPos = a.Snapshot().CursorPos
		st.SmoothPos = a.mapper.Position()
		if a.config.CancelOnHandLoss {
			a.tracker.Reset()
			st.Actions = a.dispatcher.Cancel(st.SmoothPos)
			a.mapper.Reset()
		}
	} else {
		st.Reading = reading
		st.HandPresent = true
		st.Landmarks = hand

		// Tip and palm sit far apart, so switching anchor reseeds the filter
		// instead of easing across the gap.
		palm := reading.State == gesture.StateFist || reading.State == gesture.StateOpenPalm
		if palm != a.palmAnchor {
			a.mapper.Reset()
			a.palmAnchor = palm
		}
		st.CursorPos, st.SmoothPos = a.mapper.Update(cursor.Anchor(hand, palm))
		if err := a.sink.MovePointer(ctx, st.SmoothPos); err != nil {
			a.sinkError(err)
		}

		edges := a.tracker.Observe(reading.State)
		for _, e := range edges {
			a.metrics.Edge(string(e.Gesture), string(e.Phase))
		}

		actions, err := a.dispatcher.Handle(ctx, edges, st.SmoothPos)
		if err != nil {
			a.sinkError(err)
		}
		st.Actions = actions
	}

	for _, act := range st.Actions {
		a.metrics.Action(string(act.Kind))
		a.journal(act)
	}
	a.metrics.SetActiveSessions(a.dispatcher.Busy())
	a.metrics.ObserveFrame(st.HandPresent, time.Since(start))

	a.mu.Lock()
	a.state = st
	a.mu.Unlock()

	a.broadcast(st)
	return st
}

// primaryHand classifies the first detected hand. A frame without hands or
// with unusable landmarks yields nil.
func (a *App) primaryHand(frame capture.Frame) (*detector.HandLandmarks, gesture.Reading) {
	if len(frame.Hands) == 0 {
		return nil, gesture.Reading{}
	}
	hand := &frame.Hands[0]
	reading, err := a.classifier.Classify(hand)
	if err != nil {
		a.metrics.InvalidFrame()
		a.log.Debug().Err(err).Uint64("seq", frame.Seq).Msg("dropping frame")
		return nil, gesture.Reading{}
	}
	return hand, reading
}

func (a *App) sinkError(err error) {
	a.metrics.SinkError()
	a.log.Warn().Err(err).Msg("input sink failed")
}

// actionGesture maps an edge-driven action back to the gesture and phase
// that produced it.
var actionGesture = map[dispatch.ActionKind][2]string{
	dispatch.ActionClick:       {string(gesture.StatePinching), string(gesture.PhaseStart)},
	dispatch.ActionResizeStart: {string(gesture.StatePinching), string(gesture.PhaseStart)},
	dispatch.ActionResizeEnd:   {string(gesture.StatePinching), string(gesture.PhaseEnd)},
	dispatch.ActionContextMenu: {string(gesture.StateThreeFinger), string(gesture.PhaseStart)},
	dispatch.ActionDragStart:   {string(gesture.StateFist), string(gesture.PhaseStart)},
	dispatch.ActionDragEnd:     {string(gesture.StateFist), string(gesture.PhaseEnd)},
	dispatch.ActionScrollStart: {string(gesture.StateOpenPalm), string(gesture.PhaseStart)},
	dispatch.ActionScrollEnd:   {string(gesture.StateOpenPalm), string(gesture.PhaseEnd)},
}

// journal records edge-driven actions and saves window bounds when a drag
// or resize finishes.
func (a *App) journal(act dispatch.Action) {
	if a.config.Store == nil || act.Kind.Continuous() {
		return
	}

	gp := actionGesture[act.Kind]
	ev := &store.Event{
		SessionID: act.SessionID,
		Gesture:   gp[0],
		Phase:     gp[1],
		Action:    string(act.Kind),
		WindowID:  act.WindowID,
		Point:     act.Point,
		Bounds:    act.Bounds,
		Delta:     act.Delta,
	}
	if err := a.config.Store.Events().Create(ev); err != nil {
		a.log.Error().Err(err).Str("action", ev.Action).Msg("failed to journal event")
	}

	if act.Kind == dispatch.ActionDragEnd || act.Kind == dispatch.ActionResizeEnd {
		a.saveWindow(act.WindowID)
	}

	a.journaled++
	if a.config.EventRetention > 0 && a.journaled%pruneEvery == 0 {
		if n, err := a.config.Store.Events().Prune(a.config.EventRetention); err != nil {
			a.log.Error().Err(err).Msg("failed to prune events")
		} else if n > 0 {
			a.log.Debug().Int64("removed", n).Msg("pruned event journal")
		}
	}
}

func (a *App) saveWindow(id string) {
	for _, w := range a.surface.Windows() {
		if w.ID != id {
			continue
		}
		sw := &store.Window{ID: w.ID, Title: w.Title, Bounds: w.Bounds, Z: w.Z}
		if err := a.config.Store.Windows().Save(sw); err != nil {
			a.log.Error().Err(err).Str("window", id).Msg("failed to save window")
		}
		return
	}
}

// Subscribe returns a channel that receives every new GestureState. Slow
// readers miss states rather than stall the pipeline.
func (a *App) Subscribe() <-chan GestureState {
	ch := make(chan GestureState, subscriberBuffer)

	a.subMu.Lock()
	a.subs[ch] = struct{}{}
	n := len(a.subs)
	a.subMu.Unlock()

	a.metrics.SetSubscribers(n)
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (a *App) Unsubscribe(ch <-chan GestureState) {
	a.subMu.Lock()
	for c := range a.subs {
		if c == ch {
			delete(a.subs, c)
			close(c)
			break
		}
	}
	n := len(a.subs)
	a.subMu.Unlock()

	a.metrics.SetSubscribers(n)
}

func (a *App) broadcast(st GestureState) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for ch := range a.subs {
		select {
		case ch <- st:
		default:
		}
	}
}
