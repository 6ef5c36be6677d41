package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"

	"tradecohort/internal/config"
	"tradecohort/internal/infrastructure"
	"tradecohort/internal/operations"
	"tradecohort/internal/services"
	ws "tradecohort/internal/websocket"
	"tradecohort/pkg/contracts"
)

// AppName is logged at startup
const AppName = "tradecohort"

// Application wires the fact pipeline, its HTTP surface and telemetry into one process.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	WebSocketHub  *ws.Hub
	Manager       *operations.Manager
	FactService   *services.FactService
	HealthService *services.HealthService

	Router chi.Router
	Server *http.Server
}

// NewApplication reads COHORT_* settings (and .env) and builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return New(cfg, logger)
}

func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Observability), logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	a := &Application{Config: cfg, Logger: logger, OTelProviders: providers}
	if err := a.wire(); err != nil {
		return nil, err
	}
	a.setupRouter()
	a.createServer()

	logger.Debug("application assembled",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("inputs_dir", cfg.Inputs.Dir))
	return a, nil
}

func (a *Application) wire() error {
	tracer, err := operations.NewOperationTracerFromProviders(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("business metrics: %w", err)
	}
	a.Metrics = tracer.Metrics()
	a.WebSocketHub = ws.NewHub(a.Logger)

	a.Manager, err = NewPipeline(context.Background(), a.Config, a.WebSocketHub, tracer, a.Logger)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	a.FactService = services.NewFactService(a.Manager, a.Logger)

	accounts, ledger, trades, rates := a.Config.InputPaths()
	inputs := map[string]string{"accounts": accounts, "ledger": ledger, "trades": trades, "rates": rates}
	a.HealthService = services.NewHealthService(contracts.Version, a.FactService, a.WebSocketHub, inputs, a.Logger)
	return nil
}

func (a *Application) createServer() {
	srv := a.Config.Server
	a.Server = &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(srv.Port)),
		Handler:      a.Router,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  srv.IdleTimeout,
	}
}

// Start launches the hub, warms the fact table and serves HTTP in the background. A
// listener failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.WebSocketHub.Start()
	a.warmFactTable(ctx)

	go func() {
		err := a.Server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "http server stopped", slog.Any("error", err))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "serving",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("addr", a.Server.Addr),
		slog.String("log_level", a.Config.Logging.Level),
		slog.Bool("build_on_start", a.Config.Pipeline.BuildOnStart))
	return nil
}

// warmFactTable serves the last exported table right away and, when configured,
// rebuilds it from the inputs in the background
func (a *Application) warmFactTable(ctx context.Context) {
	path := a.Config.FactsPath()
	if _, err := os.Stat(path); err == nil {
		if err := a.FactService.LoadFile(path); err != nil {
			a.Logger.WarnContext(ctx, "previous fact table unreadable",
				slog.String("path", path), slog.Any("error", err))
		}
	}

	if !a.Config.Pipeline.BuildOnStart {
		return
	}
	id, err := a.FactService.StartRebuild(map[string]any{"trigger": "startup"})
	if err != nil {
		a.Logger.ErrorContext(ctx, "startup build not started", slog.Any("error", err))
		return
	}
	a.Logger.InfoContext(ctx, "startup build queued", slog.String("operation_id", id))
}

// Stop drains HTTP, then the broadcaster (it writes to the hub), then the hub and telemetry.
func (a *Application) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	a.Manager.Shutdown()
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.WarnContext(ctx, "telemetry shutdown", slog.Any("error", err))
		}
	}
	a.Logger.InfoContext(ctx, "stopped")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run serves until SIGINT, SIGTERM or a listener failure, then stops.
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}
	<-ctx.Done()
	a.Logger.Info("shutting down", slog.String("cause", context.Cause(ctx).Error()))
	return a.Stop(context.Background())
}
