package gesture

// Phase is the position of a frame within a gesture.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseHold  Phase = "hold"
	PhaseEnd   Phase = "end"
)

// Edge is one gesture transition emitted by Tracker.
type Edge struct {
	Gesture State `json:"gesture"`
	Phase   Phase `json:"phase"`
}

// Tracker remembers the previous frame's state and reports transitions.
// It only advances when Observe is called, so frames without a hand leave
// it untouched.
type Tracker struct {
	prev State
}

// NewTracker creates a Tracker starting from idle.
func NewTracker() *Tracker {
	return &Tracker{prev: StateIdle}
}

// Previous returns the last observed state.
func (t *Tracker) Previous() State {
	return t.prev
}

// Observe records cur and returns the edges since the previous state.
// A change emits End for the old actionable state before Start for the new
// one; an unchanged actionable state emits Hold.
func (t *Tracker) Observe(cur State) []Edge {
	prev := t.prev
	t.prev = cur

	if cur == prev {
		if cur.Actionable() {
			return []Edge{{Gesture: cur, Phase: PhaseHold}}
		}
		return nil
	}

	var edges []Edge
	if prev.Actionable() {
		edges = append(edges, Edge{Gesture: prev, Phase: PhaseEnd})
	}
	if cur.Actionable() {
		edges = append(edges, Edge{Gesture: cur, Phase: PhaseStart})
	}
	return edges
}

// Reset forgets the previous state. Any actionable state is reported as
// ended so sessions can be torn down.
func (t *Tracker) Reset() []Edge {
	prev := t.prev
	t.prev = StateIdle
	if prev.Actionable() {
		return []Edge{{Gesture: prev, Phase: PhaseEnd}}
	}
	return nil
}
