package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fleetmon/internal/broadcast"
	"fleetmon/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-origin in production and proxied in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket upgrades the connection and attaches it to the broadcast
// hub. New connections receive all fleet-level events; raw sensor
// streams require an explicit per-machine subscribe message.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("ws").Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := broadcast.NewClient(uuid.New().String(), h.hub, conn)
	client.Run()
}
