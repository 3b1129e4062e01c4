package sink

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteDeadline   = 10 * time.Second
	wsChannelBuffer   = 10
	wsBroadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// No Origin header = direct connection (curl, test tools).
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub manages WebSocket connections for live-tailing decoded batches.
type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn, wsChannelBuffer),
		unregister: make(chan *websocket.Conn, wsChannelBuffer),
		broadcast:  make(chan []byte, wsBroadcastBuffer),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
			}
			h.mu.Unlock()
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("live client connected (total: %d)", count)
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("live client disconnected (total: %d)", count)
		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("live write error: %v", err)
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()

			// Unregister failed connections without holding the lock.
			for _, conn := range failed {
				h.unregister <- conn
			}
		}
	}
}

// BroadcastBatch queues a decoded batch for every connected live client.
// Drops the message when the broadcast buffer is full rather than
// blocking the sink's receive path.
func (h *Hub) BroadcastBatch(b ReceivedBatch) {
	payload, err := json.Marshal(b)
	if err != nil {
		log.Printf("failed to marshal live batch: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// ServeWS upgrades an HTTP request into a live-tail connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	h.register <- conn

	// Drain (and discard) client messages so pings are handled and the
	// close handshake completes.
	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
