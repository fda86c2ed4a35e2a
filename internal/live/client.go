package live

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"image-gallery/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

var (
	// ErrClosed is returned by Send after the connection has gone away.
	ErrClosed = errors.New("live: connection closed")
	// ErrSlow is returned by Send when the client stopped draining messages.
	ErrSlow = errors.New("live: send buffer full")
)

// Client is a viewer's WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	once sync.Once
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues msg for the write pump without blocking.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSlow
	}
}

// Close unsubscribes the client and stops both pumps. Safe to call more
// than once.
func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.hub.Unsubscribe(c)
	})
	return nil
}

// ReadPump keeps the read deadline fresh and discards incoming messages.
// It returns when the connection fails or is closed by the peer.
func (c *Client) ReadPump() {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("ws_read_error", map[string]any{"error": err.Error()})
			}
			return
		}
	}
}

// WritePump writes queued messages and pings the peer every pingPeriod.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
