package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/lingyi/internal/store"
)

// SettingsService reads and applies the user toggles.
type SettingsService interface {
	Settings() store.Settings
	ApplySettings(store.Settings) error
}

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	service SettingsService
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(s SettingsService) *SettingsHandler {
	return &SettingsHandler{service: s}
}

// updateSettingsRequest is a partial update; omitted fields keep their value.
type updateSettingsRequest struct {
	Enabled       *bool `json:"enabled"`
	ShowCamera    *bool `json:"show_camera"`
	ShowCodePanel *bool `json:"show_code_panel"`
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.service.Settings())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s := h.service.Settings()
	if req.Enabled != nil {
		s.Enabled = *req.Enabled
	}
	if req.ShowCamera != nil {
		s.ShowCamera = *req.ShowCamera
	}
	if req.ShowCodePanel != nil {
		s.ShowCodePanel = *req.ShowCodePanel
	}

	if err := h.service.ApplySettings(s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, s)
}
