package server

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/app"
	"github.com/ayusman/lingyi/internal/logging"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}

// checkOrigin accepts clients that send no Origin, pages served by this
// server, and pages on a loopback host.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}

	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// LandmarksHandler streams every GestureState over WebSocket while the code
// panel is shown.
type LandmarksHandler struct {
	app *app.App
	log zerolog.Logger
}

// NewLandmarksHandler creates a new LandmarksHandler.
func NewLandmarksHandler(a *app.App) *LandmarksHandler {
	return &LandmarksHandler{app: a, log: logging.Module("ws")}
}

// ServeHTTP upgrades the request and writes states until the client goes
// away or the code panel is hidden.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.app.Settings().ShowCodePanel {
		http.Error(w, "Code panel is hidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	states := h.app.Subscribe()
	defer h.app.Unsubscribe(states)

	// Reads only detect the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if !h.app.Settings().ShowCodePanel {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "code panel hidden")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				h.log.Debug().Err(err).Msg("websocket client dropped")
				return
			}
		}
	}
}
