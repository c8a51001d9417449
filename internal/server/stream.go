package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/lingyi/internal/capture"
	"github.com/ayusman/lingyi/internal/store"
)

// settingsReader is the part of the app the stream gate needs.
type settingsReader interface {
	Settings() store.Settings
}

// StreamHandler serves the camera preview as MJPEG while show_camera is on.
type StreamHandler struct {
	preview  *capture.Preview
	settings settingsReader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(p *capture.Preview, s settingsReader) *StreamHandler {
	return &StreamHandler{preview: p, settings: s}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.settings.Settings().ShowCamera {
		http.Error(w, "Camera preview is hidden", http.StatusForbidden)
		return
	}

	release := h.preview.Watch()
	defer release()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var seq uint64
	for {
		jpeg, next, err := h.preview.Wait(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		if !h.settings.Settings().ShowCamera {
			return
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
