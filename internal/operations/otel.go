package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tradecohort/internal/infrastructure"
	"tradecohort/pkg/contracts/domain"
)

const (
	TracerName = "tradecohort.operations"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a tracer; a nil tracer uses the global provider and nil
// metrics disable recording
func NewOperationTracer(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *OperationTracer {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}
}

// NewOperationTracerFromProviders wires the tracer to initialized providers
func NewOperationTracerFromProviders(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	var metrics *infrastructure.BusinessMetrics
	if providers.Meter != nil {
		var err error
		metrics, err = infrastructure.CreateBusinessMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
	}
	var tracer trace.Tracer
	if providers.TracerProvider != nil {
		tracer = providers.TracerProvider.Tracer(TracerName)
	}
	return NewOperationTracer(tracer, metrics), nil
}

// Metrics returns the business metrics, nil when disabled
func (t *OperationTracer) Metrics() *infrastructure.BusinessMetrics {
	return t.metrics
}

// StartRun creates a span for a whole pipeline run
func (t *OperationTracer) StartRun(ctx context.Context, operationID string, steps int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.Int("operation.steps", steps),
		),
	)
}

// EndRun closes the run span and records run metrics
func (t *OperationTracer) EndRun(ctx context.Context, span trace.Span, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("operation.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	t.metrics.RecordRun(ctx, duration, err == nil)
}

// StartStage creates a child span for one step
func (t *OperationTracer) StartStage(ctx context.Context, operationID, stageID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.step."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stageID),
		),
	)
}

// EndStage closes the step span and records its row count and duration
func (t *OperationTracer) EndStage(ctx context.Context, span trace.Span, stageID string, rows int, duration time.Duration, err error) {
	span.SetAttributes(
		attribute.Int("step.rows", rows),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	t.metrics.RecordStage(ctx, stageID, rows, duration, err)
}

// RecordFacts counts the published fact rows per status
func (t *OperationTracer) RecordFacts(ctx context.Context, rows []domain.FactRow) {
	byStatus := make(map[string]int)
	for _, r := range rows {
		byStatus[string(r.Status)]++
	}
	t.metrics.RecordFacts(ctx, byStatus)
}
