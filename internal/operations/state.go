package operations

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"tradecohort/internal/dataprocessing"
	"tradecohort/internal/enrichment"
	"tradecohort/pkg/contracts/domain"
)

// OperationStatusValue is the lifecycle position of a whole run
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState is the mutable record of one pipeline run. Steps hand their output
// tables to later steps through Context; Config holds the request parameters.
type OperationState struct {
	mu sync.RWMutex

	ID        string                `json:"id"`
	Status    OperationStatusValue  `json:"status"`
	StartTime time.Time             `json:"start_time"`
	EndTime   *time.Time            `json:"end_time,omitempty"`
	Steps     map[string]*StepState `json:"steps"`
	Config    map[string]any        `json:"config"`

	Context map[string]any `json:"-"`
	Error   error          `json:"-"`
}

func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     map[string]*StepState{},
		Config:    map[string]any{},
		Context:   map[string]any{},
	}
}

func (p *OperationState) Start() {
	p.mu.Lock()
	p.Status, p.StartTime = OperationStatusRunning, time.Now()
	p.mu.Unlock()
}

func (p *OperationState) Complete()      { p.end(OperationStatusCompleted, nil) }
func (p *OperationState) Fail(err error) { p.end(OperationStatusFailed, err) }
func (p *OperationState) Cancel()        { p.end(OperationStatusCancelled, nil) }

func (p *OperationState) end(status OperationStatusValue, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	at := time.Now()
	p.Status, p.EndTime = status, &at
	if err != nil {
		p.Error = err
	}
}

func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

func (p *OperationState) GetStage(id string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[id]
}

func (p *OperationState) SetStage(id string, st *StepState) {
	p.mu.Lock()
	p.Steps[id] = st
	p.mu.Unlock()
}

func (p *OperationState) GetContext(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.Context[key]
	return v, ok
}

func (p *OperationState) SetContext(key string, value any) {
	p.mu.Lock()
	p.Context[key] = value
	p.mu.Unlock()
}

func (p *OperationState) SetConfig(key string, value any) {
	p.mu.Lock()
	p.Config[key] = value
	p.mu.Unlock()
}

// Duration is the elapsed run time, measured to now while the run is open.
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	end := time.Now()
	if p.EndTime != nil {
		end = *p.EndTime
	}
	return end.Sub(p.StartTime)
}

// Clone copies the state and its step records. Context values are shared with p.
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cp := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		Config:    maps.Clone(p.Config),
		Context:   maps.Clone(p.Context),
		Error:     p.Error,
	}
	if p.EndTime != nil {
		at := *p.EndTime
		cp.EndTime = &at
	}
	for id, st := range p.Steps {
		cp.Steps[id] = st.copy()
	}
	return cp
}

// contextValue fetches a typed value that an earlier step stored.
func contextValue[T any](state *OperationState, key string) (T, error) {
	var zero T
	raw, ok := state.GetContext(key)
	if !ok {
		return zero, fmt.Errorf("%s not available in operation context", key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%s has unexpected type %T", key, raw)
	}
	return v, nil
}

// Dataset returns the loaded input tables
func (p *OperationState) Dataset() (*dataprocessing.Dataset, error) {
	return contextValue[*dataprocessing.Dataset](p, ContextKeyDataset)
}

// HourlyRates returns the resolved hourly rate table
func (p *OperationState) HourlyRates() ([]domain.HourlyRate, error) {
	return contextValue[[]domain.HourlyRate](p, ContextKeyHourlyRates)
}

// Joined returns the ledger rows joined to users and trades
func (p *OperationState) Joined() ([]domain.EnrichedEntry, error) {
	return contextValue[[]domain.EnrichedEntry](p, ContextKeyJoined)
}

// Valued returns the ledger rows with usd volume attached
func (p *OperationState) Valued() ([]domain.EnrichedEntry, error) {
	return contextValue[[]domain.EnrichedEntry](p, ContextKeyValued)
}

// Cohorts returns the classification result
func (p *OperationState) Cohorts() (*enrichment.Cohorts, error) {
	return contextValue[*enrichment.Cohorts](p, ContextKeyCohorts)
}

// Facts returns the assembled fact table
func (p *OperationState) Facts() ([]domain.FactRow, error) {
	return contextValue[[]domain.FactRow](p, ContextKeyFacts)
}

// Manifest returns the run manifest, creating it on first use
func (p *OperationState) Manifest() *RunManifest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.Context[ContextKeyManifest].(*RunManifest); ok {
		return m
	}
	m := NewRunManifest(p.ID)
	p.Context[ContextKeyManifest] = m
	return m
}
