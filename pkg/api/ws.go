package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST CORS policy does not carry over to the upgrade; the
	// stream is read-only so any origin may listen.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsFrame is the envelope every websocket message uses. Type is one of
// "welcome", "event", or "status".
type wsFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// wsWelcome is the first frame every client receives.
type wsWelcome struct {
	Server      string `json:"server"`
	Version     string `json:"version"`
	VirtualTime uint64 `json:"virtual_time"`
}

// hub fans engine events and periodic status frames out to websocket
// clients. One goroutine owns the client set; a slow client is evicted
// rather than allowed to stall the broadcast.
type hub struct {
	server     *Server
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	count      int64
}

func newHub(s *Server) *hub {
	return &hub{
		server:     s,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			atomic.AddInt64(&h.count, 1)
			if h.server.registry != nil {
				h.server.registry.WSClientsConnected.Inc()
			}
			h.server.logger.Debug("ws client connected", logging.Count(len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				atomic.AddInt64(&h.count, -1)
				if h.server.registry != nil {
					h.server.registry.WSClientsConnected.Dec()
				}
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Full buffer marks a dead or stalled client
					delete(h.clients, client)
					close(client.send)
					atomic.AddInt64(&h.count, -1)
					if h.server.registry != nil {
						h.server.registry.WSClientsConnected.Dec()
					}
				}
			}

		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			atomic.StoreInt64(&h.count, 0)
			return
		}
	}
}

// send queues a frame for broadcast without blocking past shutdown.
func (h *hub) send(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

func (h *hub) sendFrame(frameType string, data any) {
	payload, err := json.Marshal(wsFrame{Type: frameType, Data: data})
	if err != nil {
		h.server.logger.Error("marshal ws frame", logging.Error(err))
		return
	}
	h.send(payload)
}

// streamEngineEvents forwards every engine event to the hub until
// shutdown.
func (h *hub) streamEngineEvents() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-h.done
		cancel()
	}()

	sub, err := h.server.engine.Subscribe(ctx)
	if err != nil {
		h.server.logger.Error("subscribe for ws stream", logging.Error(err))
		return
	}

	for evt := range sub.Channel() {
		h.sendFrame("event", evt)
	}
}

// pushStatusPeriodically broadcasts an engine snapshot on a fixed
// interval so dashboards stay fresh between events.
func (h *hub) pushStatusPeriodically(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt64(&h.count) == 0 {
				continue
			}
			h.sendFrame("status", h.server.engine.Statistics())
		case <-h.done:
			return
		}
	}
}

func (h *hub) clientCount() int {
	return int(atomic.LoadInt64(&h.count))
}

func (h *hub) shutdown() {
	h.closeOnce.Do(func() { close(h.done) })
}

// handleSocket upgrades the connection, sends the welcome frame, and
// starts the client's pumps.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", logging.Error(err))
		return
	}

	client := &wsClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	welcome, err := json.Marshal(wsFrame{Type: "welcome", Data: wsWelcome{
		Server:      "flups-engine",
		Version:     s.version,
		VirtualTime: s.engine.VirtualTime(),
	}})
	if err == nil {
		client.send <- welcome
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
