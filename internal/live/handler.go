package live

import (
	"net/http"

	"github.com/gorilla/websocket"

	"image-gallery/internal/logging"
)

// Handler upgrades viewer requests to WebSocket and subscribes them.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler returns a handler for hub. A nil checkOrigin accepts any
// origin, as viewers may embed the gallery elsewhere.
func NewHandler(hub *Hub, checkOrigin func(*http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// IsUpgrade reports whether r asks for a WebSocket connection.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an error response.
		logging.Warn("ws_upgrade_failed", map[string]any{
			"error": err.Error(),
			"ip":    r.RemoteAddr,
		})
		return
	}

	c := NewClient(h.hub, conn)
	h.hub.Subscribe(c)
	logging.Debug("ws_connected", map[string]any{
		"ip":          r.RemoteAddr,
		"subscribers": h.hub.Len(),
	})

	go c.WritePump()
	go c.ReadPump()
}
