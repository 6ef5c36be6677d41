package operations

import (
	"context"

	"tradecohort/pkg/contracts/domain"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// Publisher pushes a finished fact table to an external sink
type Publisher interface {
	Publish(ctx context.Context, rows []domain.FactRow) error
}
