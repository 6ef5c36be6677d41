package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tradecohort/internal/config"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	operationIDKey
)

var (
	loggerOnce sync.Once
	logger     *slog.Logger

	logFileMu sync.Mutex
	logFile   *os.File
)

// InitializeLogger builds the process logger from cfg and installs it as slog's default.
// Only the first call configures anything; later calls return the same logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	loggerOnce.Do(func() {
		var out io.Writer
		out, err = logOutput(cfg)
		if err != nil {
			return
		}
		logger = slog.New(newContextHandler(slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: true,
			Level:     levelOf(cfg.Level),
		})))
		slog.SetDefault(logger)
	})
	return logger, err
}

// NewLogger returns a JSON logger on w that carries the context ids. Used by tests and tools.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(newContextHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelOf(level)})))
}

// WithComponent tags logger with the owning component. A nil logger falls back to the default.
func WithComponent(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With(slog.String("component", component))
}

func logOutput(cfg config.LoggingConfig) (io.Writer, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}

	logFileMu.Lock()
	logFile = f
	logFileMu.Unlock()

	if mode == "both" {
		return io.MultiWriter(os.Stdout, f), nil
	}
	return f, nil
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func resetLogger() {
	_ = CloseLogFile()
	logger = nil
	loggerOnce = sync.Once{}
}

func levelOf(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		if strings.EqualFold(level, "warning") {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return l
}

// contextHandler copies trace and operation ids from the context onto every record
type contextHandler struct {
	slog.Handler
}

func newContextHandler(h slog.Handler) *contextHandler {
	return &contextHandler{Handler: h}
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if id := GetOperationID(ctx); id != "" {
		r.AddAttrs(slog.String("operation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newContextHandler(h.Handler.WithAttrs(attrs))
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return newContextHandler(h.Handler.WithGroup(name))
}

// WithTraceID stores a trace id in ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace id in ctx, or ""
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

// EnsureTraceID returns ctx unchanged when it already has a trace id, otherwise a child with a fresh one
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}

// WithOperationID stores the pipeline run id in ctx so stage logs can be correlated
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey, id)
}

// GetOperationID returns the pipeline run id in ctx, or ""
func GetOperationID(ctx context.Context) string {
	return stringValue(ctx, operationIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}
