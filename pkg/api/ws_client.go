package api

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds one frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a client may stay silent before the read
	// side gives up on it.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxInboundBytes caps client frames. The stream is one-way; only
	// control-sized messages are expected inbound.
	maxInboundBytes  = 512
	clientSendBuffer = 256
)

// wsClient is one websocket subscriber. The hub owns registration; the
// two pumps own the connection.
type wsClient struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

// readPump drains inbound frames to keep pong handling alive. Client
// messages carry no commands; the socket exists to be written to.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes queued frames and keepalive pings until the send
// channel closes.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			if c.hub.server.registry != nil {
				c.hub.server.registry.WSMessagesSent.Inc()
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
