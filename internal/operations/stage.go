package operations

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"
)

// Step is one stage of a pipeline run. Steps read their inputs from and write their
// outputs to the shared OperationState.
type Step interface {
	ID() string
	Name() string
	Execute(ctx context.Context, state *OperationState) error
	// Validate reports whether the inputs the step needs are present in state
	Validate(state *OperationState) error
	// GetDependencies lists step ids that must have completed first
	GetDependencies() []string
}

// StepStatus is the lifecycle position of a step within a run
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the runtime record of one step. It is safe for concurrent use; the exported
// fields are for JSON and copies, use the methods on shared instances.
type StepState struct {
	mu        sync.RWMutex
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    StepStatus     `json:"status"`
	StartTime *time.Time     `json:"start_time,omitempty"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Progress  float64        `json:"progress"`
	Message   string         `json:"message"`
	Rows      int            `json:"rows"`
	Error     error          `json:"-"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewStepState returns a pending step record
func NewStepState(id, name string) *StepState {
	return &StepState{ID: id, Name: name, Status: StepStatusPending, Metadata: map[string]any{}}
}

// Start moves the step to active
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
	s.Progress = 0
}

// Complete finishes the step successfully
func (s *StepState) Complete() {
	s.finish(StepStatusCompleted, "", nil)
}

// Fail finishes the step with err
func (s *StepState) Fail(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.finish(StepStatusFailed, msg, err)
}

// Skip finishes a step that never ran
func (s *StepState) Skip(reason string) {
	s.finish(StepStatusSkipped, reason, nil)
}

func (s *StepState) finish(status StepStatus, message string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = status
	s.Error = err
	if message != "" {
		s.Message = message
	}
	if status == StepStatusCompleted {
		s.Progress = 100
	}
}

// SetRows records the size of the table the step produced
func (s *StepState) SetRows(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows = n
}

// SetMetadata records a per-step detail such as a drop count
func (s *StepState) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Metadata[key] = value
}

// MetadataCopy returns a copy of the step metadata
func (s *StepState) MetadataCopy() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.Metadata)
}

func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

func (s *StepState) GetRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Rows
}

// Duration is the elapsed run time, measured to now while the step is active
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.StartTime == nil:
		return 0
	case s.EndTime == nil:
		return time.Since(*s.StartTime)
	default:
		return s.EndTime.Sub(*s.StartTime)
	}
}

// copy returns an unshared snapshot of s
func (s *StepState) copy() *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metadata := maps.Clone(s.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &StepState{
		ID:        s.ID,
		Name:      s.Name,
		Status:    s.Status,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Progress:  s.Progress,
		Message:   s.Message,
		Rows:      s.Rows,
		Error:     s.Error,
		Metadata:  metadata,
	}
}

// BaseStage carries the identity and dependencies of a step. Embed it and implement Execute.
type BaseStage struct {
	id           string
	name         string
	dependencies []string
}

// NewBaseStage returns the identity part of a step
func NewBaseStage(id, name string, dependencies []string) BaseStage {
	if dependencies == nil {
		dependencies = []string{}
	}
	return BaseStage{id: id, name: name, dependencies: dependencies}
}

func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

func (b *BaseStage) GetDependencies() []string {
	if b == nil {
		return nil
	}
	return b.dependencies
}

// Validate accepts any state. Steps with inputs override it.
func (b *BaseStage) Validate(*OperationState) error {
	if b == nil {
		return errors.New("nil stage")
	}
	return nil
}
