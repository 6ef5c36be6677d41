// Package events defines the messages pushed to websocket clients while the
// fact table is being built.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeConnection greets a newly registered client
	MessageTypeConnection MessageType = "connection"
	// MessageTypeOperationSnapshot carries the full progress of a running build
	MessageTypeOperationSnapshot MessageType = "operation:snapshot"
	// MessageTypeOperationComplete is sent once when a build reaches a terminal status
	MessageTypeOperationComplete MessageType = "operation:complete"
	// MessageTypeHeartbeat is sent by browsers to keep the connection alive
	MessageTypeHeartbeat MessageType = "heartbeat"
)

// Message is the envelope of every server-to-client message
type Message struct {
	Type      MessageType `json:"type"`
	Step      string      `json:"step,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage stamps a message with the current time
func NewMessage(t MessageType, step, status string, data interface{}) Message {
	return Message{
		Type:      t,
		Step:      step,
		Status:    status,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ConnectionData is the payload of a connection message
type ConnectionData struct {
	ClientID string `json:"client_id"`
	Version  string `json:"version"`
}
