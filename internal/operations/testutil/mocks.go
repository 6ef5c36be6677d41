// Package testutil provides fakes for exercising the operations manager without real steps.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"tradecohort/internal/operations"
	"tradecohort/pkg/contracts/domain"
)

// MockStage is a step whose behaviour is supplied by the test. Nil funcs succeed.
type MockStage struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	executions atomic.Int32
}

func (m *MockStage) ID() string   { return m.IDValue }
func (m *MockStage) Name() string { return m.NameValue }

func (m *MockStage) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

func (m *MockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.executions.Add(1)
	if m.ExecuteFunc == nil {
		return nil
	}
	return m.ExecuteFunc(ctx, state)
}

func (m *MockStage) Validate(state *operations.OperationState) error {
	if m.ValidateFunc == nil {
		return nil
	}
	return m.ValidateFunc(state)
}

// GetExecuteCalls counts Execute invocations
func (m *MockStage) GetExecuteCalls() int {
	return int(m.executions.Load())
}

// CreateSuccessfulStage returns a step that does nothing and succeeds
func CreateSuccessfulStage(id, name string, deps ...string) *MockStage {
	return &MockStage{IDValue: id, NameValue: name, DependenciesValue: deps}
}

// CreateFailingStage returns a step whose Execute fails with err
func CreateFailingStage(id, name string, err error, deps ...string) *MockStage {
	if err == nil {
		err = errors.New("step failed")
	}
	s := CreateSuccessfulStage(id, name, deps...)
	s.ExecuteFunc = func(context.Context, *operations.OperationState) error { return err }
	return s
}

// CreateBlockingStage returns a step that only returns once its context ends
func CreateBlockingStage(id, name string, deps ...string) *MockStage {
	s := CreateSuccessfulStage(id, name, deps...)
	s.ExecuteFunc = func(ctx context.Context, _ *operations.OperationState) error {
		<-ctx.Done()
		return ctx.Err()
	}
	return s
}

// WebSocketMessage is one captured broadcast
type WebSocketMessage struct {
	EventType string
	Step      string
	Status    string
	Metadata  interface{}
}

// MockWebSocketHub records broadcasts instead of sending them
type MockWebSocketHub struct {
	mu       sync.Mutex
	messages []WebSocketMessage
}

func (m *MockWebSocketHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, WebSocketMessage{EventType: eventType, Step: step, Status: status, Metadata: metadata})
}

// GetMessagesByType returns the captured broadcasts of eventType in arrival order
func (m *MockWebSocketHub) GetMessagesByType(eventType string) []WebSocketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WebSocketMessage
	for _, msg := range m.messages {
		if msg.EventType == eventType {
			out = append(out, msg)
		}
	}
	return out
}

// WaitForMessage polls for a broadcast of eventType until timeout
func (m *MockWebSocketHub) WaitForMessage(eventType string, timeout time.Duration) bool {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)
	for {
		if len(m.GetMessagesByType(eventType)) > 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-ticker.C:
		}
	}
}

// MockPublisher stands in for the Sheets publisher
type MockPublisher struct {
	Err error

	mu        sync.Mutex
	Published [][]domain.FactRow
}

func (p *MockPublisher) Publish(_ context.Context, rows []domain.FactRow) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, rows)
	return nil
}

// Calls counts successful publishes
func (p *MockPublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Published)
}
