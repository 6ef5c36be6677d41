package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"tradecohort/internal/config"
)

const (
	ServiceName    = "tradecohort"
	ServiceVersion = "1.0.0"
	MeterName      = "tradecohort"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// OTelConfigFrom maps the observability section of the application config
func OTelConfigFrom(cfg config.ObservabilityConfig) *OTelConfig {
	metricExporter := "none"
	if cfg.EnableMetrics {
		metricExporter = "prometheus"
	}
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    cfg.Environment,
		TraceExporter:  cfg.TraceExporter,
		MetricExporter: metricExporter,
		EnableMetrics:  cfg.EnableMetrics,
		EnableTracing:  cfg.EnableTracing,
		SampleRatio:    cfg.SampleRatio,
	}
}

// InitializeOTel builds the tracer and meter providers named by cfg and installs them as
// the otel globals. Metrics are exposed from a private Prometheus registry so repeated
// initialisation in one process does not collide on collector registration.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = OTelConfigFrom(config.Default().Observability)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = WithComponent(logger, "otel")
	ctx := context.Background()

	host, _ := os.Hostname()
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", fmt.Sprintf("%s-%d", host, os.Getpid())),
	)

	p := &OTelProviders{Logger: logger}
	if cfg.EnableTracing {
		if err := p.setupTracing(cfg, res); err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
	}
	if cfg.EnableMetrics {
		if err := p.setupMetrics(cfg, res); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.InfoContext(ctx, "telemetry ready",
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter),
		slog.Bool("tracing", p.TracerProvider != nil),
		slog.Bool("metrics", p.MeterProvider != nil))
	return p, nil
}

func (p *OTelProviders) setupTracing(cfg *OTelConfig, res *resource.Resource) error {
	var exp sdktrace.SpanExporter
	switch cfg.TraceExporter {
	case "", "none":
		return nil
	case "stdout":
		e, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("stdout exporter: %w", err)
		}
		exp = e
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	p.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	p.Tracer = p.TracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(p.TracerProvider)
	return nil
}

func (p *OTelProviders) setupMetrics(cfg *OTelConfig, res *resource.Resource) error {
	switch cfg.MetricExporter {
	case "", "none":
		return nil
	case "prometheus":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	reg := promclient.NewRegistry()
	exp, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("prometheus exporter: %w", err)
	}
	p.PrometheusHTTP = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	p.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(exp))
	p.Meter = p.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(p.MeterProvider)
	return nil
}

// BusinessMetrics holds the pipeline and HTTP instruments
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	PipelineRunsTotal    metric.Int64Counter
	PipelineRunDuration  metric.Float64Histogram
	PipelineStageTotal   metric.Int64Counter
	PipelineStageSeconds metric.Float64Histogram
	PipelineRows         metric.Int64Counter
	PipelineErrors       metric.Int64Counter
	FactRowsByStatus     metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
		all []error
	)
	collect := func(e error) { all = append(all, e) }

	m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	collect(err)
	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s"))
	collect(err)
	m.PipelineRunsTotal, err = meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Total number of fact table builds"))
	collect(err)
	m.PipelineRunDuration, err = meter.Float64Histogram("pipeline_run_duration_seconds",
		metric.WithDescription("Fact table build duration in seconds"), metric.WithUnit("s"))
	collect(err)
	m.PipelineStageTotal, err = meter.Int64Counter("pipeline_stage_executions_total",
		metric.WithDescription("Total number of pipeline stage executions"))
	collect(err)
	m.PipelineStageSeconds, err = meter.Float64Histogram("pipeline_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"), metric.WithUnit("s"))
	collect(err)
	m.PipelineRows, err = meter.Int64Counter("pipeline_rows_total",
		metric.WithDescription("Rows produced by each pipeline stage"))
	collect(err)
	m.PipelineErrors, err = meter.Int64Counter("pipeline_errors_total",
		metric.WithDescription("Total number of pipeline stage failures"))
	collect(err)
	m.FactRowsByStatus, err = meter.Int64Counter("fact_rows_total",
		metric.WithDescription("Fact rows emitted per lifecycle status"))
	collect(err)

	if err := errors.Join(all...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordStage records one stage execution with its row count
func (m *BusinessMetrics) RecordStage(ctx context.Context, stage string, rows int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.PipelineStageTotal.Add(ctx, 1, attrs)
	m.PipelineStageSeconds.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.PipelineErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("error.type", fmt.Sprintf("%T", err))))
		return
	}
	m.PipelineRows.Add(ctx, int64(rows), attrs)
}

// RecordRun records a finished pipeline run
func (m *BusinessMetrics) RecordRun(ctx context.Context, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.PipelineRunsTotal.Add(ctx, 1, attrs)
	m.PipelineRunDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFacts adds per-status fact row counts
func (m *BusinessMetrics) RecordFacts(ctx context.Context, byStatus map[string]int) {
	if m == nil {
		return
	}
	for status, n := range byStatus {
		m.FactRowsByStatus.Add(ctx, int64(n), metric.WithAttributes(attribute.String("status", status)))
	}
}

// RecordRequest records one served HTTP request
func (m *BusinessMetrics) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status))
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// Shutdown flushes and stops both providers; errors from each are joined.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	p.Logger.DebugContext(ctx, "telemetry stopped")
	return nil
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
