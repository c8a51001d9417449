package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ayusman/lingyi/internal/geom"
)

// Event is one journaled gesture action.
type Event struct {
	ID        int64      `json:"id"`
	SessionID string     `json:"session_id,omitempty"`
	Gesture   string     `json:"gesture"`
	Phase     string     `json:"phase"`
	Action    string     `json:"action"`
	WindowID  string     `json:"window_id,omitempty"`
	Point     geom.Point `json:"point"`
	Bounds    geom.Rect  `json:"bounds"`
	Delta     float64    `json:"delta,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// EventRepository appends to and reads the gesture event journal.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create appends an event and sets its ID.
func (r *EventRepository) Create(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	bounds, err := json.Marshal(e.Bounds)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(
		`INSERT INTO gesture_events (session_id, gesture, phase, action, window_id, x, y, bounds, delta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Gesture, e.Phase, e.Action, e.WindowID, e.Point.X, e.Point.Y, string(bounds), e.Delta, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	return err
}

// List returns up to limit events, newest first. A non-positive limit
// returns everything.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(
		`SELECT id, session_id, gesture, phase, action, window_id, x, y, bounds, delta, created_at
		 FROM gesture_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
}

// BySession returns the events of one session in order.
func (r *EventRepository) BySession(sessionID string) ([]*Event, error) {
	return r.query(
		`SELECT id, session_id, gesture, phase, action, window_id, x, y, bounds, delta, created_at
		 FROM gesture_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
}

func (r *EventRepository) query(q string, args ...any) ([]*Event, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var bounds string
		err := rows.Scan(&e.ID, &e.SessionID, &e.Gesture, &e.Phase, &e.Action, &e.WindowID,
			&e.Point.X, &e.Point.Y, &bounds, &e.Delta, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(bounds), &e.Bounds); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Prune keeps only the newest keep events and returns how many were removed.
func (r *EventRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM gesture_events WHERE id NOT IN (
			SELECT id FROM gesture_events ORDER BY id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
