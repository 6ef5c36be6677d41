package operations

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Snapshot steps report "running" where StepState uses StepStatusActive.
const stepRunning = "running"

// StatusBroadcaster is the single authority for operation status updates. It keeps the
// complete state of every operation and broadcasts a full snapshot after each change.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        WebSocketHub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
	stopOnce   sync.Once
}

// OperationSnapshot represents the complete state of an operation at a point in time
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`   // pending|running|completed|failed|cancelled
	Progress    int            `json:"progress"` // 0-100
	CurrentStep string         `json:"current_step"`
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot represents the state of a single step
type StepSnapshot struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Status   string         `json:"status"` // pending|running|completed|failed|skipped
	Progress int            `json:"progress"`
	Rows     int            `json:"rows"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StepInfo names a step when an operation is created
type StepInfo struct {
	ID   string
	Name string
}

type updateRequest struct {
	operationID string
	updateFunc  func(*OperationSnapshot)
	done        chan struct{}
}

// NewStatusBroadcaster starts the update loop. Call Stop to end it.
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	sb := &StatusBroadcaster{
		operations: map[string]*OperationSnapshot{},
		hub:        hub,
		logger:     logger.With("component", "status_broadcaster"),
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
	}
	go sb.loop()
	return sb
}

func (sb *StatusBroadcaster) loop() {
	for {
		select {
		case req := <-sb.updates:
			sb.apply(req)
		case <-sb.stop:
			return
		}
	}
}

func (sb *StatusBroadcaster) apply(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	snap := sb.operations[req.operationID]
	if snap == nil {
		now := time.Now()
		snap = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      string(OperationStatusPending),
			Steps:       []StepSnapshot{},
			StartedAt:   now,
		}
		sb.operations[req.operationID] = snap
	}
	req.updateFunc(snap)
	snap.UpdatedAt = time.Now()
	if n := len(snap.Steps); n > 0 {
		sum := 0
		for _, st := range snap.Steps {
			sum += st.Progress
		}
		snap.Progress = sum / n
	}
	if snap.CompletedAt == nil && isTerminal(snap.Status) {
		at := snap.UpdatedAt
		snap.CompletedAt = &at
	}
	out := snap.clone()
	sb.mu.Unlock()

	sb.publish(out)
}

func isTerminal(status string) bool {
	switch OperationStatusValue(status) {
	case OperationStatusCompleted, OperationStatusFailed, OperationStatusCancelled:
		return true
	}
	return false
}

func (s *OperationSnapshot) clone() *OperationSnapshot {
	cp := *s
	cp.Steps = slices.Clone(s.Steps)
	for i := range cp.Steps {
		cp.Steps[i].Metadata = maps.Clone(s.Steps[i].Metadata)
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func (sb *StatusBroadcaster) publish(snap *OperationSnapshot) {
	if sb.hub == nil {
		return
	}
	sb.logger.Debug("operation snapshot",
		slog.String("operation_id", snap.OperationID),
		slog.String("status", snap.Status),
		slog.Int("progress", snap.Progress),
		slog.String("current_step", snap.CurrentStep))

	sb.hub.BroadcastUpdate(EventTypeSnapshot, snap.OperationID, snap.Status, snap)
	if isTerminal(snap.Status) {
		sb.hub.BroadcastUpdate(EventTypeComplete, snap.OperationID, snap.Status, snap)
	}
}

// UpdateStatus runs updateFunc on the operation's snapshot inside the update loop and
// blocks until the resulting snapshot has been handed to the hub.
func (sb *StatusBroadcaster) UpdateStatus(operationID string, updateFunc func(*OperationSnapshot)) {
	req := updateRequest{operationID: operationID, updateFunc: updateFunc, done: make(chan struct{})}
	select {
	case sb.updates <- req:
	case <-sb.stop:
		return
	}
	select {
	case <-req.done:
	case <-sb.stop:
	}
}

func (sb *StatusBroadcaster) CreateOperation(operationID string, steps []StepInfo) {
	sb.UpdateStatus(operationID, func(snap *OperationSnapshot) {
		snap.Status = string(OperationStatusPending)
		snap.Progress = 0
		snap.Message = "Operation created"
		snap.Steps = make([]StepSnapshot, 0, len(steps))
		for _, info := range steps {
			snap.Steps = append(snap.Steps, StepSnapshot{ID: info.ID, Name: info.Name, Status: string(StepStatusPending)})
		}
	})
}

func (sb *StatusBroadcaster) StartOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snap *OperationSnapshot) {
		snap.Status = string(OperationStatusRunning)
		snap.Message = "Operation started"
	})
}

func (sb *StatusBroadcaster) StartStep(operationID, stepID string) {
	sb.updateStep(operationID, stepID, func(snap *OperationSnapshot, st *StepSnapshot) {
		st.Status = stepRunning
		st.Progress = 0
		st.Message = "Step started"
		snap.CurrentStep = st.Name
	})
}

// UpdateStepProgress clamps progress to 0..100; a lower value than the current one only
// updates the message.
func (sb *StatusBroadcaster) UpdateStepProgress(operationID, stepID string, progress int, message string) {
	progress = min(max(progress, 0), 100)
	sb.updateStep(operationID, stepID, func(_ *OperationSnapshot, st *StepSnapshot) {
		st.Progress = max(st.Progress, progress)
		st.Message = message
	})
}

func (sb *StatusBroadcaster) CompleteStep(operationID, stepID string, rows int, metadata map[string]any) {
	sb.updateStep(operationID, stepID, func(_ *OperationSnapshot, st *StepSnapshot) {
		st.Status = string(StepStatusCompleted)
		st.Progress, st.Rows = 100, rows
		st.Message = "Step completed"
		st.Metadata = metadata
	})
}

func (sb *StatusBroadcaster) FailStep(operationID, stepID string, err error) {
	sb.updateStep(operationID, stepID, func(_ *OperationSnapshot, st *StepSnapshot) {
		st.Status = string(StepStatusFailed)
		st.Error = err.Error()
	})
}

func (sb *StatusBroadcaster) SkipStep(operationID, stepID, reason string) {
	sb.updateStep(operationID, stepID, func(_ *OperationSnapshot, st *StepSnapshot) {
		st.Status = string(StepStatusSkipped)
		st.Message = reason
	})
}

// updateStep appends an unknown step so late registrations still show up.
func (sb *StatusBroadcaster) updateStep(operationID, stepID string, fn func(*OperationSnapshot, *StepSnapshot)) {
	sb.UpdateStatus(operationID, func(snap *OperationSnapshot) {
		i := slices.IndexFunc(snap.Steps, func(st StepSnapshot) bool { return st.ID == stepID })
		if i < 0 {
			snap.Steps = append(snap.Steps, StepSnapshot{ID: stepID, Name: stepID, Status: string(StepStatusPending)})
			i = len(snap.Steps) - 1
		}
		fn(snap, &snap.Steps[i])
	})
}

func (sb *StatusBroadcaster) finish(operationID string, status OperationStatusValue, fn func(*OperationSnapshot)) {
	sb.UpdateStatus(operationID, func(snap *OperationSnapshot) {
		snap.Status = string(status)
		snap.CurrentStep = ""
		fn(snap)
	})
}

func (sb *StatusBroadcaster) CompleteOperation(operationID string, message string) {
	sb.finish(operationID, OperationStatusCompleted, func(snap *OperationSnapshot) { snap.Message = message })
}

func (sb *StatusBroadcaster) FailOperation(operationID string, err error) {
	sb.finish(operationID, OperationStatusFailed, func(snap *OperationSnapshot) { snap.Error = err.Error() })
}

func (sb *StatusBroadcaster) CancelOperation(operationID string) {
	sb.finish(operationID, OperationStatusCancelled, func(snap *OperationSnapshot) { snap.Message = "Operation cancelled" })
}

// GetSnapshot returns a copy; callers may mutate it freely.
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	if snap, ok := sb.operations[operationID]; ok {
		return snap.clone(), true
	}
	return nil, false
}

func (sb *StatusBroadcaster) GetAllSnapshots() []*OperationSnapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	out := make([]*OperationSnapshot, 0, len(sb.operations))
	for _, snap := range sb.operations {
		out = append(out, snap.clone())
	}
	return out
}

// CleanupOldOperations drops finished operations that completed more than maxAge ago and
// returns how many were removed. Running operations are never dropped.
func (sb *StatusBroadcaster) CleanupOldOperations(maxAge time.Duration) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	n := 0
	for id, snap := range sb.operations {
		if snap.CompletedAt != nil && isTerminal(snap.Status) && snap.CompletedAt.Before(cutoff) {
			delete(sb.operations, id)
			n++
		}
	}
	return n
}

func (sb *StatusBroadcaster) Stop() {
	sb.stopOnce.Do(func() { close(sb.stop) })
}
