package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/desktop"
	"github.com/ayusman/lingyi/internal/dispatch"
	"github.com/ayusman/lingyi/internal/geom"
	"github.com/ayusman/lingyi/internal/logging"
	"github.com/ayusman/lingyi/internal/store"
)

// WindowHandler serves the desktop windows.
type WindowHandler struct {
	desktop *desktop.Desktop
	store   *store.Store
	log     zerolog.Logger
}

// NewWindowHandler creates a WindowHandler. s may be nil, in which case
// bounds changes are not persisted.
func NewWindowHandler(d *desktop.Desktop, s *store.Store) *WindowHandler {
	return &WindowHandler{desktop: d, store: s, log: logging.Module("api")}
}

type windowResponse struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Bounds geom.Rect `json:"bounds"`
	Z      int       `json:"z"`
}

type listWindowsResponse struct {
	Viewport geom.Size        `json:"viewport"`
	Windows  []windowResponse `json:"windows"`
}

type updateWindowRequest struct {
	Bounds *geom.Rect `json:"bounds"`
	Focus  bool       `json:"focus"`
}

func toWindowResponse(w dispatch.Window) windowResponse {
	return windowResponse{ID: w.ID, Title: w.Title, Bounds: w.Bounds, Z: w.Z}
}

// ServeHTTP routes /api/windows and /api/windows/{id}.
func (h *WindowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/windows")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodPut:
		h.update(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WindowHandler) list(w http.ResponseWriter, r *http.Request) {
	windows := h.desktop.Windows()
	response := listWindowsResponse{
		Viewport: h.desktop.Viewport(),
		Windows:  make([]windowResponse, 0, len(windows)),
	}
	for _, win := range windows {
		response.Windows = append(response.Windows, toWindowResponse(win))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *WindowHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	win, err := h.desktop.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Window not found")
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponse(win))
}

// update places and optionally raises a window. Bounds are fitted into the
// viewport and the minimum size before being applied.
func (h *WindowHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req updateWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Bounds == nil && !req.Focus {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	if req.Bounds != nil {
		if _, err := h.desktop.SetBounds(id, *req.Bounds); err != nil {
			h.notFoundOr500(w, err)
			return
		}
	}
	if req.Focus {
		if err := h.desktop.Focus(id); err != nil {
			h.notFoundOr500(w, err)
			return
		}
	}

	win, err := h.desktop.Get(id)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}

	if h.store != nil {
		sw := &store.Window{ID: win.ID, Title: win.Title, Bounds: win.Bounds, Z: win.Z}
		if err := h.store.Windows().Save(sw); err != nil {
			h.log.Error().Err(err).Str("window", id).Msg("failed to save window")
			writeError(w, http.StatusInternalServerError, "Failed to save window")
			return
		}
	}

	writeJSON(w, http.StatusOK, toWindowResponse(win))
}

func (h *WindowHandler) notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, desktop.ErrWindowNotFound) {
		writeError(w, http.StatusNotFound, "Window not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to update window")
}
