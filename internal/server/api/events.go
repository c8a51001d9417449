package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/lingyi/internal/store"
)

// DefaultEventLimit applies when /api/events is called without ?limit=.
const DefaultEventLimit = 100

// EventHandler serves the gesture event journal.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
}

// ServeHTTP handles GET /api/events?limit=N&session=ID. Events are newest
// first; a session filter returns that session in order.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	var (
		events []*store.Event
		err    error
	)
	if session := q.Get("session"); session != "" {
		events, err = h.store.Events().BySession(session)
	} else {
		limit := DefaultEventLimit
		if v := q.Get("limit"); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = n
		}
		events, err = h.store.Events().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}
