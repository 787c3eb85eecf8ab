package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Frogwarg/video-chat/internal/protocol"
	"github.com/Frogwarg/video-chat/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Participants join from arbitrary hosts on the local network.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns the handler that upgrades signaling connections and hands
// them to the hub.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			Send: make(chan *protocol.Message, 256),
		}
		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}
