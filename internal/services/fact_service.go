package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tradecohort/internal/analytics"
	apperrors "tradecohort/internal/errors"
	"tradecohort/internal/exporter"
	"tradecohort/internal/infrastructure"
	"tradecohort/internal/operations"
	"tradecohort/pkg/contracts/domain"
)

// Pipeline runs a fact-table build
type Pipeline interface {
	Execute(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error)
}

// BuildInfo describes the latest pipeline run
type BuildInfo struct {
	OperationID string                          `json:"operation_id"`
	Status      operations.OperationStatusValue `json:"status"`
	Rows        int                             `json:"rows"`
	StartedAt   time.Time                       `json:"started_at"`
	Duration    string                          `json:"duration"`
	FailedStep  string                          `json:"failed_step,omitempty"`
	Error       string                          `json:"error,omitempty"`
}

// factTable pairs a fact table with the views memoized over it
type factTable struct {
	facts *analytics.Facts
	cache *analytics.Cache
}

// FactService owns the materialized fact table. Readers always see a complete table;
// a rebuild swaps it in atomically once the pipeline succeeds.
type FactService struct {
	pipeline Pipeline
	logger   *slog.Logger

	table     atomic.Pointer[factTable]
	lastBuild atomic.Pointer[BuildInfo]
	running   atomic.Bool
}

// NewFactService creates a fact service. A nil pipeline disables Rebuild.
func NewFactService(pipeline Pipeline, logger *slog.Logger) *FactService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactService{
		pipeline: pipeline,
		logger:   infrastructure.WithComponent(logger, "fact_service"),
	}
}

// Rebuild runs the pipeline and publishes its fact table. Only one run is allowed at a time.
func (s *FactService) Rebuild(ctx context.Context, params map[string]any) (*BuildInfo, error) {
	if s.pipeline == nil {
		return nil, apperrors.ErrServiceUnavailable
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperrors.ErrPipelineRunning
	}
	defer s.running.Store(false)

	return s.rebuild(ctx, operations.OperationRequest{Parameters: params})
}

// StartRebuild launches a rebuild in the background and returns its operation id.
// Progress is reported through the pipeline's websocket hub and LastBuild.
func (s *FactService) StartRebuild(params map[string]any) (string, error) {
	if s.pipeline == nil {
		return "", apperrors.ErrServiceUnavailable
	}
	if !s.running.CompareAndSwap(false, true) {
		return "", apperrors.ErrPipelineRunning
	}

	req := operations.OperationRequest{ID: uuid.NewString(), Parameters: params}
	go func() {
		defer s.running.Store(false)
		// errors are recorded in LastBuild
		_, _ = s.rebuild(context.Background(), req)
	}()
	return req.ID, nil
}

func (s *FactService) rebuild(ctx context.Context, req operations.OperationRequest) (*BuildInfo, error) {
	started := time.Now()
	s.logger.InfoContext(ctx, "rebuild_start",
		slog.String("operation_id", req.ID),
		slog.Any("parameters", req.Parameters))

	resp, err := s.pipeline.Execute(ctx, req)
	info := &BuildInfo{OperationID: req.ID, StartedAt: started, Duration: time.Since(started).String()}
	if resp != nil {
		info.OperationID = resp.ID
		info.Status = resp.Status
	}
	if err != nil {
		return s.failed(ctx, info, err)
	}

	rows, err := operations.FactsOf(resp)
	if err != nil {
		info.Status = operations.OperationStatusFailed
		return s.failed(ctx, info, fmt.Errorf("read fact table: %w", err))
	}
	s.Publish(rows)
	info.Rows = len(rows)
	s.lastBuild.Store(info)

	s.logger.InfoContext(ctx, "rebuild_complete",
		slog.String("operation_id", info.OperationID),
		slog.Int("rows", info.Rows),
		slog.String("duration", info.Duration))
	return info, nil
}

// failed records info as the last build with err attached and returns both.
func (s *FactService) failed(ctx context.Context, info *BuildInfo, err error) (*BuildInfo, error) {
	info.Error = err.Error()
	info.FailedStep = operations.FailedStep(err)
	if info.Status == "" || info.Status == operations.OperationStatusCompleted {
		info.Status = operations.OperationStatusFailed
	}
	s.lastBuild.Store(info)
	s.logger.ErrorContext(ctx, "rebuild_failed",
		slog.String("operation_id", info.OperationID),
		slog.String("failed_step", info.FailedStep),
		slog.String("error", err.Error()))
	return info, err
}

// Publish replaces the fact table and drops every memoized view
func (s *FactService) Publish(rows []domain.FactRow) {
	old := s.table.Swap(&factTable{facts: analytics.New(rows), cache: analytics.NewCache()})
	if old != nil {
		old.cache.Reset()
	}
}

// LoadFile publishes a fact table previously written by the export step
func (s *FactService) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("open fact table %s", path), err)
	}
	defer f.Close()

	rows, err := exporter.ReadFacts(f)
	if err != nil {
		return err
	}
	s.Publish(rows)
	s.logger.Info("fact table loaded", slog.String("path", path), slog.Int("rows", len(rows)))
	return nil
}

// Facts returns the current fact table
func (s *FactService) Facts() (*analytics.Facts, error) {
	t := s.table.Load()
	if t == nil {
		return nil, apperrors.ErrFactsNotReady
	}
	return t.facts, nil
}

// Ready reports whether a fact table has been published
func (s *FactService) Ready() bool {
	return s.table.Load() != nil
}

// Running reports whether a rebuild is in progress
func (s *FactService) Running() bool {
	return s.running.Load()
}

// LastBuild returns the latest run, nil before the first one
func (s *FactService) LastBuild() *BuildInfo {
	return s.lastBuild.Load()
}

// CacheStats exposes view cache counters
func (s *FactService) CacheStats() analytics.CacheStats {
	t := s.table.Load()
	if t == nil {
		return analytics.CacheStats{}
	}
	return t.cache.Stats()
}

// Query filters fact rows
func (s *FactService) Query(q analytics.Query) ([]domain.FactRow, error) {
	f, err := s.Facts()
	if err != nil {
		return nil, err
	}
	return f.Filter(q), nil
}
