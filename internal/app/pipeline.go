package app

import (
	"context"
	"fmt"
	"log/slog"

	"tradecohort/internal/config"
	"tradecohort/internal/exporter"
	"tradecohort/internal/operations"
)

// NewPipeline builds the operation manager that runs the fact table steps.
// hub may be nil when nobody watches progress.
func NewPipeline(ctx context.Context, cfg *config.Config, hub operations.WebSocketHub, tracer *operations.OperationTracer, logger *slog.Logger) (*operations.Manager, error) {
	settings, err := operations.SettingsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline settings: %w", err)
	}

	deps := operations.StepDeps{Logger: logger}
	if cfg.Sheets.Enabled() {
		publisher, err := exporter.NewSheetsPublisher(ctx, cfg.Sheets, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sheets publisher: %w", err)
		}
		deps.Publisher = publisher
	}

	registry, err := operations.NewPipelineRegistry(settings, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to register pipeline steps: %w", err)
	}

	return operations.NewManager(hub, registry, operations.ExecutionConfig(cfg),
		operations.WithLogger(logger),
		operations.WithTracer(tracer),
		operations.WithManifestPath(operations.ManifestPath(cfg)),
	), nil
}
