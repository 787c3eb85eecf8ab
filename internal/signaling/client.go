package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP descriptions fit well
	// within this.
	maxMessageSize = 64 * 1024
)

// Client wraps one websocket connection. It knows nothing about which peer
// or room it carries; that association is a session record owned by the hub.
type Client struct {
	// Hub is the hub this client reports to.
	Hub *Hub

	// Conn is the websocket connection.
	Conn *websocket.Conn

	// Send is the buffered channel of outbound messages. The hub writes to
	// it; WritePump drains it onto the connection.
	Send chan *protocol.Message
}

// inbound pairs a decoded message with the connection it arrived on.
type inbound struct {
	client *Client
	msg    *protocol.Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// One ReadPump goroutine runs per connection, keeping all reads on a single
// goroutine. A read error of any kind is treated as an abrupt disconnect.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "err", err)
			}
			break
		}
		c.Hub.inbound <- &inbound{client: c, msg: &msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// One WritePump goroutine runs per connection, keeping all writes on a
// single goroutine. This also makes delivery within one connection FIFO.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				slog.Warn("websocket write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
