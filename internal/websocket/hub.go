package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"tradecohort/pkg/contracts"
	"tradecohort/pkg/contracts/events"
)

const broadcastBuffer = 256

// Hub maintains the set of active clients and fans pipeline progress out to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewHub creates a new Hub. Call Start before broadcasting.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		go h.run()
	})
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
	// A hub that was never started has nothing to wait for
	started := true
	h.startOnce.Do(func() { started = false })
	if started {
		<-h.done
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped",
				slog.Int64("total_connections", h.totalConnections.Load()),
				slog.Int64("messages_sent", h.messagesSent.Load()))
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)

			h.logger.Info("client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))
			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client unregistered",
				slog.String("client_id", client.id),
				slog.Int("total_clients", count))

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) greet(client *Client) {
	msg := events.NewMessage(events.MessageTypeConnection, "", "connected", events.ConnectionData{
		ClientID: client.id,
		Version:  contracts.Version,
	})
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("client buffer full, connection message dropped", slog.String("client_id", client.id))
	}
}

// fanOut sends message to every client; clients that cannot keep up are disconnected
func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("client send buffer full, disconnecting", slog.String("client_id", client.id))
		}
	}
}

// BroadcastUpdate sends a pipeline event to all connected clients. It never blocks
// the pipeline: when the hub is backed up the message is dropped.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	payload, err := json.Marshal(events.NewMessage(events.MessageType(eventType), step, status, data))
	if err != nil {
		h.logger.Error("failed to marshal message",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	default:
		h.messagesDropped.Add(1)
		h.logger.Warn("broadcast queue full, message dropped", slog.String("type", eventType))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients":    int64(h.ClientCount()),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}
