package peer

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Frogwarg/video-chat/internal/dns"
	"github.com/Frogwarg/video-chat/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *protocol.Message
	outgoing  chan *protocol.Message
	done      chan struct{}
	closed    bool
}

// NewClient creates a signaling client for the given websocket URL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *protocol.Message, 32),
		outgoing:  make(chan *protocol.Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Resolve the host ourselves so a broken local resolver does not block
	// joining a call.
	dialer := websocket.DefaultDialer
	dialer.NetDial = func(network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		resolvedIP, err := dns.Lookup(host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
		return net.Dial(network, net.JoinHostPort(resolvedIP, port))
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// Incoming returns the channel of messages received from the server. It is
// closed when the connection drops.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// Send queues a message for delivery to the server.
func (c *Client) Send(msg *protocol.Message) error {
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return fmt.Errorf("signaling connection closed")
	}
}

// Close tears the connection down.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	}
}

// readPump reads messages from the websocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued messages and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
