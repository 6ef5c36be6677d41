package websocket

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tradecohort/pkg/contracts/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10 // must stay below pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

var heartbeat = []byte(`{"type":"` + string(events.MessageTypeHeartbeat) + `"}`)

// Client is one subscriber of pipeline progress. The stream is one-way: the hub writes
// into send, WritePump drains it, and ReadPump only watches for heartbeats and close.
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	remoteAddr  string
	connectedAt time.Time
	logger      *slog.Logger
}

func NewClient(hub *Hub, conn Connection, logger *slog.Logger) *Client {
	if logger == nil {
		logger = hub.logger
	}
	id := uuid.NewString()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger.With(slog.String("component", "websocket.client"), slog.String("client_id", id)),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) extendRead() error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// ReadPump runs until the peer goes away, then unregisters the client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		c.logger.Debug("client disconnected", slog.Duration("connected_for", time.Since(c.connectedAt)))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.extendRead()
	c.conn.SetPongHandler(func(string) error { return c.extendRead() })

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		if bytes.Equal(bytes.TrimSpace(msg), heartbeat) {
			_ = c.extendRead()
		}
	}
}

// WritePump forwards hub messages and keeps the connection alive with pings.
// It returns when the hub closes send or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	sent := 0
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.Debug("write pump stopped", slog.Int("messages_sent", sent))
	}()

	write := func(kind int, data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = write(websocket.CloseMessage, []byte{})
				return
			}
			if err := write(websocket.TextMessage, msg); err != nil {
				c.logger.Warn("websocket write failed", slog.String("error", err.Error()))
				return
			}
			sent++
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
