package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestInitializeOTelWithMetrics(t *testing.T) {
	logger := NewLogger(&bytes.Buffer{}, "error")
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "test",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		SampleRatio:    1,
	}, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordStage(ctx, "load", 42, time.Millisecond, nil)
	metrics.RecordRun(ctx, time.Second, true)
	metrics.RecordFacts(ctx, map[string]int{"New": 3})

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pipeline_rows_total")
}

func TestInitializeOTelRejectsUnknownExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{EnableTracing: true, TraceExporter: "jaeger"}, NewLogger(&bytes.Buffer{}, "error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestBusinessMetricsNilSafe(t *testing.T) {
	var m *BusinessMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStage(ctx, "join", 1, time.Second, errors.New("boom"))
		m.RecordRun(ctx, time.Second, false)
		m.RecordRequest(ctx, "/healthz", 200, time.Millisecond)
	})

	noopMetrics, err := CreateBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		noopMetrics.RecordStage(ctx, "join", 1, time.Second, errors.New("boom"))
	})
}
