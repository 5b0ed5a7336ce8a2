package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ladder_go/internal/ladder"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

type messageType string

const (
	MessageHello    messageType = "hello"
	MessageSnapshot messageType = "snapshot"
	MessageDone     messageType = "done"
)

// Message is the envelope for everything sent to feed clients.
type Message struct {
	Type  messageType      `json:"type"`
	RunID string           `json:"run_id,omitempty"`
	Data  *ladder.Snapshot `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts ladder snapshots to websocket clients. Publish is called by
// the playback goroutine only; clients are served by their own goroutines.
type Hub struct {
	runID    string
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
	closed  bool
}

// NewHub creates a hub that tags its hello message with runID.
func NewHub(runID string) *Hub {
	return &Hub{
		runID: runID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local viewer: any origin may subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Publish sends the snapshot to every connected client.
// Clients that cannot keep up are disconnected instead of blocking replay.
func (h *Hub) Publish(snap ladder.Snapshot) error {
	payload, err := json.Marshal(Message{Type: MessageSnapshot, Data: &snap})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("Feed client too slow, dropping", slog.String("remote", c.conn.RemoteAddr().String()))
			h.removeLocked(c)
		}
	}
	return nil
}

// Done tells clients the replay finished and disconnects them.
func (h *Hub) Done() {
	payload, _ := json.Marshal(Message{Type: MessageDone, RunID: h.runID})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
		h.removeLocked(c)
	}
	h.closed = true
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Feed upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	hello, _ := json.Marshal(Message{Type: MessageHello, RunID: h.runID})
	c.send <- hello

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if h.last != nil {
		c.send <- h.last
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("Feed client connected", slog.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(c)
	go h.readLoop(c)
}

// removeLocked unregisters c. Must be called with lock held.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readLoop drains control frames and notices when the client goes away.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
