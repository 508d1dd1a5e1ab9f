package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is how long a single write may take before the connection
	// is considered dead.
	writeWait = 10 * time.Second
	// pongWait bounds how long a connection may stay silent.  Missing pongs
	// past this deadline fail the read pump, which is the transport-level
	// disconnect detector that recovers seats from vanished clients.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize caps inbound frames; commands are tiny.
	maxMessageSize = 4096
)

// Client is one websocket connection known to the hub.  Operator clients
// additionally receive the merchant view on every state change.
type Client struct {
	ID          string
	DisplayName string
	Operator    bool

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// newConnectionID returns a random hex identifier for a connection.  The
// underlying call to crypto/rand ensures the ids cannot collide in practice.
func newConnectionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a time-based id; rand failing means the host is in
		// far worse trouble than duplicate connection ids.
		return hex.EncodeToString([]byte(time.Now().String()))[:32]
	}
	return hex.EncodeToString(b)
}

// readPump reads commands off the socket and forwards them to the hub's
// single command loop.  It owns the read side of the connection: pong
// handling, deadlines and the unregister on exit.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			// The hub loop has stopped; nobody is left to notify.
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("gateway: read error from %s: %v", c.ID, err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.enqueue(mustEnvelope(evError, errorData{Message: "malformed message"}))
			continue
		}
		c.hub.commands <- command{client: c, env: env}
	}
}

// writePump serializes all writes to the socket and keeps the connection
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a message to the write pump without ever blocking the
// caller.  A client too slow to drain its buffer is disconnected by the hub
// on the next send attempt.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}
