// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "micscope/internal/log"
)

// WebSocketTransport broadcasts snapshots as JSON to all connected
// clients on /metrics. Sends are rate limited so a fast analysis cadence
// cannot flood slow clients, and a full broadcast queue drops the update
// instead of blocking the sender.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server

	lastSend        time.Time
	minSendInterval time.Duration
}

// NewWebSocketTransport creates a WebSocketTransport listening on addr
// (e.g. ":8080") and starts serving. minSendInterval <= 0 disables rate
// limiting.
func NewWebSocketTransport(addr string, minSendInterval time.Duration) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool, any origin may observe
			},
		},
		clients:         make(map[*websocket.Conn]bool),
		broadcast:       make(chan any, 256),
		minSendInterval: minSendInterval,
	}
	wst.start()
	return wst
}

func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", wst.handleWebSocket)

	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("WebSocketTransport: listening on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("WebSocketTransport: server error: %v", err)
		}
	}()

	go wst.handleBroadcasts()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("WebSocketTransport: upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: client connected, total: %d", total)

	// Drain reads to detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.clientsMu.Lock()
				delete(wst.clients, conn)
				total := len(wst.clients)
				wst.clientsMu.Unlock()
				conn.Close()
				applog.Infof("WebSocketTransport: client disconnected, total: %d", total)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(data); err != nil {
				applog.Errorf("WebSocketTransport: error sending to client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues data for broadcast. Rate-limited and non-blocking: updates
// beyond the rate limit or a full queue are dropped, never errors.
func (wst *WebSocketTransport) Send(data any) error {
	if wst.minSendInterval > 0 {
		now := time.Now()
		if now.Sub(wst.lastSend) < wst.minSendInterval {
			return nil
		}
		wst.lastSend = now
	}

	select {
	case wst.broadcast <- data:
	default:
		// Queue full, drop this update
	}
	return nil
}

// Close shuts down the server and all client connections.
func (wst *WebSocketTransport) Close() error {
	applog.Infof("WebSocketTransport: closing server")

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
