package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradecohort/internal/infrastructure"
)

// Manager orchestrates operation execution
type Manager struct {
	registry     *Registry
	config       *Config
	hub          WebSocketHub
	broadcaster  *StatusBroadcaster
	tracer       *OperationTracer
	logger       *slog.Logger
	manifestPath string

	mu         sync.RWMutex
	operations map[string]*OperationState
	cancels    map[string]context.CancelFunc
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithLogger sets the manager logger
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry instrumentation
func WithTracer(tracer *OperationTracer) ManagerOption {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithManifestPath saves the run manifest to path after every run
func WithManifestPath(path string) ManagerOption {
	return func(m *Manager) { m.manifestPath = path }
}

// NewManager creates a new operation manager
func NewManager(hub WebSocketHub, registry *Registry, config *Config, opts ...ManagerOption) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	m := &Manager{
		registry:   registry,
		config:     config,
		hub:        hub,
		logger:     slog.Default(),
		operations: make(map[string]*OperationState),
		cancels:    make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = infrastructure.WithComponent(m.logger, "operations")
	if m.tracer == nil {
		m.tracer = NewOperationTracer(nil, nil)
	}
	m.broadcaster = NewStatusBroadcaster(hub, m.logger)
	return m
}

// RegisterStage registers a Step with the operation
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetBroadcaster returns the status broadcaster
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the registered steps in dependency order. The first failing step aborts
// the run and every later step is marked skipped.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = infrastructure.WithOperationID(infrastructure.EnsureTraceID(ctx), req.ID)

	state := NewOperationState(req.ID)
	manifest := state.Manifest()
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
		manifest.SetConfig(k, v)
	}

	steps, err := m.selectSteps(req)
	if err != nil {
		m.logOperationError(ctx, req.ID, err)
		state.Fail(err)
		return m.createResponse(state), err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.storeOperation(state, cancel)
	defer m.removeOperation(req.ID)

	infos := make([]StepInfo, len(steps))
	for i, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
		infos[i] = StepInfo{ID: step.ID(), Name: step.Name()}
	}
	m.broadcaster.CreateOperation(req.ID, infos)

	m.logOperationStart(ctx, req, len(steps))
	ctx, span := m.tracer.StartRun(ctx, req.ID, len(steps))
	state.Start()
	m.broadcaster.StartOperation(req.ID)

	err = m.executeSequential(ctx, state, steps)

	switch {
	case err == nil:
		state.Complete()
		manifest.Complete()
		m.broadcaster.CompleteOperation(req.ID, "Operation completed successfully")
		if facts, ferr := state.Facts(); ferr == nil {
			m.tracer.RecordFacts(ctx, facts)
		}
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel()
		m.broadcaster.CancelOperation(req.ID)
	default:
		state.Fail(err)
		m.broadcaster.FailOperation(req.ID, err)
	}
	m.tracer.EndRun(ctx, span, state.Duration(), err)
	m.saveManifest(ctx, manifest)
	m.logOperationComplete(ctx, req.ID, state.Duration(), state.GetStatus())

	return m.createResponse(state), err
}

// selectSteps resolves a single requested step or the whole pipeline
func (m *Manager) selectSteps(req OperationRequest) ([]Step, error) {
	stepID := req.Step
	if stepID == "" {
		stepID, _ = req.Parameters["step"].(string)
	}
	if stepID != "" && stepID != StepFullPipeline {
		step, err := m.registry.Get(stepID)
		if err != nil {
			return nil, &OperationError{Type: ErrorTypeNotFound, Step: stepID, Message: "requested step not found", Cause: err}
		}
		return []Step{step}, nil
	}

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, NewFatalError("failed to resolve step order", err)
	}
	if len(steps) == 0 {
		return nil, NewFatalError("no steps registered", nil)
	}
	return steps, nil
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		m.logger.InfoContext(ctx, "executing_stage",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		if err := m.executeStage(ctx, state, step); err != nil {
			m.logStageError(ctx, state.ID, step.ID(), err)
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("Step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStage executes a single Step under its timeout
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("state for step %s not found", step.ID()), nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Fail(err)
		m.broadcaster.FailStep(state.ID, step.ID(), err)
		return err
	}
	if err := step.Validate(state); err != nil {
		verr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(verr)
		m.broadcaster.FailStep(state.ID, step.ID(), verr)
		return verr
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stageCtx, span := m.tracer.StartStage(stageCtx, state.ID, step.ID())

	manifest := state.Manifest()
	manifest.RecordStageStart(step.ID(), step.Name())
	stepState.Start()
	m.broadcaster.StartStep(state.ID, step.ID())
	m.logStageStart(ctx, state.ID, step.ID())

	start := time.Now()
	err := step.Execute(stageCtx, state)
	duration := time.Since(start)

	if err != nil {
		err = m.classifyError(ctx, stageCtx, step.ID(), timeout, err)
		stepState.Fail(err)
		m.broadcaster.FailStep(state.ID, step.ID(), err)
		manifest.RecordStageFailure(step.ID(), err)
		m.tracer.EndStage(stageCtx, span, step.ID(), 0, duration, err)
		return err
	}

	rows := stepState.GetRows()
	metadata := stepState.MetadataCopy()
	stepState.Complete()
	m.broadcaster.CompleteStep(state.ID, step.ID(), rows, metadata)
	manifest.RecordStageCompletion(step.ID(), rows, metadata)
	m.tracer.EndStage(stageCtx, span, step.ID(), rows, duration, nil)
	m.logStageComplete(ctx, state.ID, step.ID(), rows, duration)
	return nil
}

// classifyError types a step failure as timeout, cancellation or execution error
func (m *Manager) classifyError(parent, stageCtx context.Context, stepID string, timeout time.Duration, err error) error {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	switch {
	case parent.Err() != nil:
		return NewCancellationError(stepID, err)
	case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		return NewTimeoutError(stepID, timeout.String(), err)
	default:
		return NewExecutionError(stepID, err)
	}
}

// checkDependencies verifies that dependencies run in this operation have completed
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			continue
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency not completed (status: %s)", status))
		}
	}
	return nil
}

// skipRemaining marks steps that will not run
func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
			m.broadcaster.SkipStep(state.ID, step.ID(), reason)
		}
	}
}

func (m *Manager) saveManifest(ctx context.Context, manifest *RunManifest) {
	if m.manifestPath == "" {
		return
	}
	manifest.AddOutput("manifest", m.manifestPath, 0)
	if err := manifest.Save(m.manifestPath); err != nil {
		m.logger.WarnContext(ctx, "manifest_save_failed",
			slog.String("path", m.manifestPath),
			slog.String("error", err.Error()))
	}
}

// createResponse creates an operation response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.GetStatus(),
		Duration: state.Duration(),
		Steps:    state.Clone().Steps,
		State:    state,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}

// GetOperation retrieves a copy of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}
	return state.Clone(), nil
}

// ListOperations returns copies of all running operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, state := range m.operations {
		operations = append(operations, state.Clone())
	}
	return operations
}

// CancelOperation cancels a running operation; the run stops at its next step boundary
// or as soon as the active step observes its context
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	cancel, exists := m.cancels[id]
	m.mu.RUnlock()

	if !exists {
		return ErrOperationNotFound
	}
	cancel()
	return nil
}

// Shutdown stops the status broadcaster
func (m *Manager) Shutdown() {
	m.broadcaster.Stop()
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
	m.cancels[state.ID] = cancel
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
	delete(m.cancels, id)
}
