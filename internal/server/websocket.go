package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/fan"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Snapshots buffered per client before it is dropped
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub fans snapshots out to every connected event stream.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     *zap.Logger
}

type client struct {
	conn *websocket.Conn
	send chan fan.Snapshot
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), log: log}
}

// Broadcast queues s for every client. A client whose buffer is full is
// disconnected.
func (h *Hub) Broadcast(s fan.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- s:
		default:
			h.log.Warn("Dropping slow event client", zap.String("remote_addr", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			c.close()
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// queue sends snaps to c only, stopping when its buffer is full. It is a
// no-op once c has left the hub.
func (h *Hub) queue(c *client, snaps []fan.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, snap := range snaps {
		select {
		case c.send <- snap:
		default:
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// handleEvents upgrades to a websocket, sends the current state of every
// fan, then streams each new snapshot as a JSON text message.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan fan.Snapshot, sendBuffer)}
	s.hub.add(c)
	s.hub.queue(c, s.ctrl.Snapshots())
	s.log.Debug("Event client connected", zap.String("remote_addr", r.RemoteAddr))

	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		_ = c.conn.Close()
		s.log.Debug("Event client disconnected", zap.String("remote_addr", c.conn.RemoteAddr().String()))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case snap, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(s.view(snap)); err != nil {
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
