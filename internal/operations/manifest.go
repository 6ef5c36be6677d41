package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradecohort/internal/dataprocessing"
)

// ManifestFile is the manifest name written beside the outputs
const ManifestFile = "run_manifest.json"

// RunManifest records what one pipeline run consumed and produced
type RunManifest struct {
	mu sync.RWMutex

	ID          string    `json:"id"`
	OperationID string    `json:"operation_id"`
	StartTime   time.Time `json:"start_time"`

	Config map[string]any `json:"config,omitempty"`

	Inputs  []dataprocessing.SourceInfo `json:"inputs"`
	Stages  []StageExecution            `json:"stages"`
	Outputs []OutputInfo                `json:"outputs"`

	Status      string    `json:"status"` // pending|running|completed|failed
	LastUpdated time.Time `json:"last_updated"`
	Error       string    `json:"error,omitempty"`
}

// StageExecution tracks the execution of a single step
type StageExecution struct {
	StageID   string         `json:"stage_id"`
	StageName string         `json:"stage_name"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Duration  string         `json:"duration"`
	Status    string         `json:"status"`
	Rows      int            `json:"rows"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// OutputInfo describes one written artifact
type OutputInfo struct {
	Kind string `json:"kind"` // csv|xlsx|sheets|manifest
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// NewRunManifest creates a manifest for an operation
func NewRunManifest(operationID string) *RunManifest {
	now := time.Now()
	return &RunManifest{
		ID:          fmt.Sprintf("manifest-%s", operationID),
		OperationID: operationID,
		StartTime:   now,
		Config:      make(map[string]any),
		Inputs:      []dataprocessing.SourceInfo{},
		Stages:      []StageExecution{},
		Outputs:     []OutputInfo{},
		Status:      "pending",
		LastUpdated: now,
	}
}

// SetConfig records a run parameter
func (m *RunManifest) SetConfig(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Config[key] = value
	m.LastUpdated = time.Now()
}

// SetInputs records the loaded source files
func (m *RunManifest) SetInputs(sources []dataprocessing.SourceInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inputs = append([]dataprocessing.SourceInfo(nil), sources...)
	m.LastUpdated = time.Now()
}

// AddOutput records a written artifact
func (m *RunManifest) AddOutput(kind, path string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs = append(m.Outputs, OutputInfo{Kind: kind, Path: path, Rows: rows})
	m.LastUpdated = time.Now()
}

// RecordStageStart records the start of a step execution
func (m *RunManifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = "running"
	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: time.Now(),
		Status:    "running",
	})
	m.LastUpdated = time.Now()
}

// RecordStageCompletion records the completion of a step
func (m *RunManifest) RecordStageCompletion(stageID string, rows int, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.stage(stageID); s != nil {
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = "completed"
		s.Rows = rows
		s.Metadata = metadata
	}
	m.LastUpdated = time.Now()
}

// RecordStageFailure records a step failure and fails the run
func (m *RunManifest) RecordStageFailure(stageID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.stage(stageID); s != nil {
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = "failed"
		s.Error = err.Error()
	}
	m.Status = "failed"
	m.Error = fmt.Sprintf("Stage %s failed: %v", stageID, err)
	m.LastUpdated = time.Now()
}

// Complete marks the run as completed
func (m *RunManifest) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = "completed"
	m.LastUpdated = time.Now()
}

// IsStageCompleted checks if a step has been completed
func (m *RunManifest) IsStageCompleted(stageID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stage(stageID)
	return s != nil && s.Status == "completed"
}

// StageRows returns the row count a completed step recorded
func (m *RunManifest) StageRows(stageID string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stage(stageID)
	if s == nil || s.Status != "completed" {
		return 0, false
	}
	return s.Rows, true
}

// stage returns the latest execution record of stageID; callers hold the lock
func (m *RunManifest) stage(stageID string) *StageExecution {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].StageID == stageID {
			return &m.Stages[i]
		}
	}
	return nil
}

// MarshalJSON encodes the manifest under its read lock
func (m *RunManifest) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type plain RunManifest
	return json.Marshal((*plain)(m))
}

// Save writes the manifest as indented JSON to path
func (m *RunManifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// LoadRunManifest reads a manifest written by Save
func LoadRunManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	type plain RunManifest
	m := &RunManifest{}
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
