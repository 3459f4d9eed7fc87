// Package monitor exposes a read-only WebSocket feed of decoded order
// envelopes and worker/queue depth statistics for operational dashboards.
// It is adapted from the teacher's pkg/websocket/server.go hub pattern:
// a single hub goroutine owns the client set and fans broadcast messages
// out to each client's own write pump, rather than any client goroutine
// touching shared state directly.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/log"
)

// Event is a broadcastable unit of operational visibility: a decoded order
// acceptance, or a periodic stats snapshot.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// OrderAccepted is the payload of an "order_accepted" event, describing one
// decoded order envelope.
type OrderAccepted struct {
	OrderID  uint64 `json:"orderId"`
	Symbol   string `json:"symbol"`
	Side     int64  `json:"side"`
	Price    int64  `json:"price"`
	Qty      uint64 `json:"qty"`
	ClientID int64  `json:"clientId"`
}

// Stats is a periodic snapshot of queue/worker depths.
type Stats struct {
	IngressQueueDepth int            `json:"ingressQueueDepth"`
	PendingTasks      map[string]int `json:"pendingTasks"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is a best-effort broadcast hub: a slow or disconnected client
// never blocks publishers, and when a client's send buffer is full the new
// event is dropped for that client while already buffered events are kept.
type Server struct {
	logger log.Logger

	clients    map[*client]bool
	clientsMu  sync.RWMutex
	register   chan *client
	unregister chan *client
	broadcast  chan Event

	messagesOut atomic.Uint64
	clientCount atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a monitor hub. Call Start to begin serving.
func NewServer(logger log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		logger:     logger,
		clients:    make(map[*client]bool),
		register:   make(chan *client, 64),
		unregister: make(chan *client, 64),
		broadcast:  make(chan Event, 1024),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Publish enqueues an event for broadcast to every connected client. If the
// broadcast channel itself is saturated (no hub consuming fast enough),
// the event is dropped and logged at Debug, never Warn/Error: this feed is
// explicitly best-effort and must never back-pressure the core IPC path.
func (s *Server) Publish(event Event) {
	event.Timestamp = time.Now().UnixNano()
	select {
	case s.broadcast <- event:
	default:
		s.logger.Debug("monitor: dropping event, broadcast channel saturated", "type", event.Type)
	}
}

// PublishOrderAccepted is a convenience wrapper that publishes o as an
// "order_accepted" event.
func (s *Server) PublishOrderAccepted(o OrderAccepted) {
	s.Publish(Event{Type: "order_accepted", Data: o})
}

// PublishStats is a convenience wrapper for periodic queue/worker snapshots.
func (s *Server) PublishStats(st Stats) {
	s.Publish(Event{Type: "stats", Data: st})
}

// Start launches the hub goroutine and serves the WebSocket endpoint on
// port. It blocks until the server is stopped or fails to bind.
func (s *Server) Start(port string) error {
	s.wg.Add(1)
	go s.runHub()

	mux := http.NewServeMux()
	mux.HandleFunc("/monitor", s.handleWebSocket)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		<-s.ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	s.logger.Info("monitor server starting", "port", port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("monitor: server error: %w", err)
	}
	return nil
}

// Stop shuts the hub and HTTP server down, waiting for the hub goroutine to
// exit.
func (s *Server) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) runHub() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.clientsMu.Lock()
			for c := range s.clients {
				close(c.send)
			}
			s.clientsMu.Unlock()
			return

		case c := <-s.register:
			s.clientsMu.Lock()
			s.clients[c] = true
			s.clientsMu.Unlock()
			s.clientCount.Add(1)

		case c := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
				s.clientCount.Add(-1)
			}
			s.clientsMu.Unlock()

		case event := <-s.broadcast:
			s.fanOut(event)
		}
	}
}

func (s *Server) fanOut(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Debug("monitor: failed to marshal event", "error", err)
		return
	}
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
			s.messagesOut.Add(1)
		default:
			// Client is too slow; drop rather than block the hub.
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("monitor: websocket upgrade failed", "error", err)
		return
	}
	c := &client{id: fmt.Sprintf("%p", conn), conn: conn, send: make(chan []byte, 64)}
	s.register <- c

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readPump only exists to notice disconnects (this feed is read-only from
// the client's perspective); any inbound message is discarded.
func (s *Server) readPump(c *client) {
	defer func() { s.unregister <- c }()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
