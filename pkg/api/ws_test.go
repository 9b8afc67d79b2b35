package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
	"github.com/xepoctpat/H3X-sub004/pkg/pubsub"
)

// startHub runs the hub goroutines that Server.Start would normally own.
func startHub(t *testing.T, server *Server) {
	t.Helper()
	go server.hub.run()
	go server.hub.streamEngineEvents()
	t.Cleanup(server.hub.shutdown)
}

// dialSocket serves the full handler over a real listener and opens a
// websocket against /ws.
func dialSocket(t *testing.T, server *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// rawFrame mirrors wsFrame with the payload left undecoded.
type rawFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) rawFrame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}

	var frame rawFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("Failed to decode frame %s: %v", payload, err)
	}
	return frame
}

func TestAPI_WebSocketWelcome(t *testing.T) {
	server := setupTestServer(t)
	startHub(t, server)
	conn := dialSocket(t, server)

	frame := readFrame(t, conn)
	if frame.Type != "welcome" {
		t.Fatalf("First frame type = %q, want welcome", frame.Type)
	}

	var welcome wsWelcome
	if err := json.Unmarshal(frame.Data, &welcome); err != nil {
		t.Fatalf("Failed to decode welcome: %v", err)
	}
	if welcome.Server != "flups-engine" {
		t.Errorf("Server = %q, want flups-engine", welcome.Server)
	}
	if welcome.Version != "dev" {
		t.Errorf("Version = %q, want dev", welcome.Version)
	}
	if welcome.VirtualTime != 0 {
		t.Errorf("VirtualTime = %d, want 0 on a fresh engine", welcome.VirtualTime)
	}
}

func TestAPI_WebSocketEventStream(t *testing.T) {
	server := setupTestServer(t)
	startHub(t, server)
	conn := dialSocket(t, server)

	if frame := readFrame(t, conn); frame.Type != "welcome" {
		t.Fatalf("First frame type = %q, want welcome", frame.Type)
	}

	// The stream goroutine subscribes asynchronously; anything published
	// before that is dropped. Keep creating nodes until one lands.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(25 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				server.engine.CreateNode(lattice.KindCoupler, geometry.Vec3{}, 0.5)
			}
		}
	}()

	frame := readFrame(t, conn)
	if frame.Type != "event" {
		t.Fatalf("Frame type = %q, want event", frame.Type)
	}

	var evt struct {
		Topic       string          `json:"topic"`
		VirtualTime uint64          `json:"virtual_time"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(frame.Data, &evt); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if evt.Topic != pubsub.TopicNodeCreated {
		t.Errorf("Topic = %q, want %q", evt.Topic, pubsub.TopicNodeCreated)
	}
	if evt.VirtualTime != 0 {
		t.Errorf("VirtualTime = %d, want 0 before any action", evt.VirtualTime)
	}

	var node lattice.Node
	if err := json.Unmarshal(evt.Payload, &node); err != nil {
		t.Fatalf("Failed to decode event payload: %v", err)
	}
	if node.ID == "" {
		t.Error("Event payload missing node ID")
	}
	if node.Kind != lattice.KindCoupler {
		t.Errorf("Payload kind = %q, want %q", node.Kind, lattice.KindCoupler)
	}
}

func TestAPI_WebSocketStatusFrames(t *testing.T) {
	server, _ := setupTestServerWithData(t)
	startHub(t, server)
	go server.hub.pushStatusPeriodically(20 * time.Millisecond)
	conn := dialSocket(t, server)

	if frame := readFrame(t, conn); frame.Type != "welcome" {
		t.Fatalf("First frame type = %q, want welcome", frame.Type)
	}

	// The seeded lattice predates the subscription, so no event frames
	// interleave; the next frames are periodic status pushes.
	for i := 0; i < 5; i++ {
		frame := readFrame(t, conn)
		if frame.Type != "status" {
			continue
		}

		var status struct {
			Nodes     int  `json:"nodes"`
			Patches   int  `json:"patches"`
			Mirroring bool `json:"mirroring_enabled"`
		}
		if err := json.Unmarshal(frame.Data, &status); err != nil {
			t.Fatalf("Failed to decode status: %v", err)
		}
		if status.Nodes != 3 {
			t.Errorf("Status nodes = %d, want 3", status.Nodes)
		}
		if status.Patches != 1 {
			t.Errorf("Status patches = %d, want 1", status.Patches)
		}
		if !status.Mirroring {
			t.Error("Status should report mirroring enabled")
		}
		return
	}
	t.Fatal("No status frame within 5 frames")
}

func TestAPI_WebSocketClientTracking(t *testing.T) {
	server := setupTestServer(t)
	startHub(t, server)
	conn := dialSocket(t, server)

	// Registration completes before the welcome frame is written, so
	// after reading it the count is settled.
	if frame := readFrame(t, conn); frame.Type != "welcome" {
		t.Fatalf("First frame type = %q, want welcome", frame.Type)
	}
	if n := server.hub.clientCount(); n != 1 {
		t.Fatalf("Client count = %d, want 1", n)
	}

	rr := doRequest(t, server, http.MethodGet, "/api/status", nil)
	var resp StatusResponse
	decodeResponse(t, rr, &resp)
	if resp.WSClients != 1 {
		t.Errorf("Status ws_clients = %d, want 1", resp.WSClients)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for server.hub.clientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Client count still %d after close", server.hub.clientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
