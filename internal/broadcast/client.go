package broadcast

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"fleetmon/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// ControlMessage is the inbound subscribe/unsubscribe frame a client may
// send over its websocket.
type ControlMessage struct {
	Type      string `json:"type"` // "subscribe" | "unsubscribe"
	MachineID string `json:"machine_id"`
}

// Client bridges one websocket connection and the hub.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	sub  *Subscriber
}

// NewClient registers the connection with the hub and returns the
// client. Run must be called to start the pumps.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		sub:  hub.Connect(id),
	}
}

// Run starts the read and write pumps and blocks until the connection
// drops. The hub registration is cleaned up on exit.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump consumes control messages until the connection closes, then
// unregisters from the hub.
func (c *Client) readPump() {
	log := logger.WithComponent("broadcast").With().Str("conn_id", c.ID).Logger()

	defer func() {
		c.hub.Disconnect(c.ID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		var msg ControlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed control message")
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.hub.Subscribe(c.ID, msg.MachineID)
		case "unsubscribe":
			c.hub.Unsubscribe(c.ID, msg.MachineID)
		default:
			log.Debug().Str("type", msg.Type).Msg("unknown control message type")
		}
	}
}

// writePump forwards hub frames to the peer and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
