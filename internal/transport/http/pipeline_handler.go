package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "tradecohort/internal/errors"
	"tradecohort/internal/infrastructure"
	"tradecohort/internal/middleware"
	"tradecohort/internal/operations"
	"tradecohort/internal/services"
	api "tradecohort/pkg/contracts/api/v1"
)

// StepChecker reports whether a pipeline step exists
type StepChecker interface {
	Has(id string) bool
}

// PipelineStatus is the body of GET /pipeline/status
type PipelineStatus struct {
	Running    bool                            `json:"running"`
	LastBuild  *services.BuildInfo             `json:"last_build,omitempty"`
	Operations []*operations.OperationSnapshot `json:"operations"`
}

// PipelineHandler starts fact table builds and reports their progress
type PipelineHandler struct {
	runner       PipelineRunner
	tracker      OperationTracker
	canceller    OperationCanceller
	steps        StepChecker
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPipelineHandler creates a pipeline handler
func NewPipelineHandler(runner PipelineRunner, tracker OperationTracker, canceller OperationCanceller, steps StepChecker,
	validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PipelineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineHandler{
		runner:       runner,
		tracker:      tracker,
		canceller:    canceller,
		steps:        steps,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "pipeline")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /pipeline routes
func (h *PipelineHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/run", h.Run)
	r.Get("/status", h.Status)
	r.Get("/operations/{id}", h.GetOperation)
	r.Post("/operations/{id}/cancel", h.Cancel)
	return r
}

// Run handles POST /api/v1/pipeline/run. The build continues in the background;
// progress is streamed on /ws and summarized by /pipeline/status.
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pipeline-handler").Start(r.Context(), "pipeline_handler.run",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/pipeline/run"),
			attribute.String("request_id", middleware.GetRequestID(r.Context())),
		))
	defer span.End()

	var req api.PipelineRunRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if req.Step != "" && req.Step != operations.StepFullPipeline && !h.steps.Has(req.Step) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("step", "unknown pipeline step "+req.Step))
		return
	}

	params := make(map[string]any, len(req.Parameters)+2)
	for k, v := range req.Parameters {
		params[k] = v
	}
	if req.Step != "" {
		params["step"] = req.Step
	}
	params["trigger"] = "api"

	id, err := h.runner.StartRebuild(params)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("operation.id", id))

	h.logger.InfoContext(ctx, "pipeline run started",
		slog.String("operation_id", id),
		slog.String("step", req.Step))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.PipelineRunResponse{
		OperationID: id,
		Status:      string(operations.OperationStatusRunning),
	})
}

// Status handles GET /api/v1/pipeline/status
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	snapshots := h.tracker.GetAllSnapshots()
	if snapshots == nil {
		snapshots = []*operations.OperationSnapshot{}
	}
	render.JSON(w, r, PipelineStatus{
		Running:    h.runner.Running(),
		LastBuild:  h.runner.LastBuild(),
		Operations: snapshots,
	})
}

// GetOperation handles GET /api/v1/pipeline/operations/{id}
func (h *PipelineHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snapshot, ok := h.tracker.GetSnapshot(id)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("operation "+id))
		return
	}
	render.JSON(w, r, snapshot)
}

// Cancel handles POST /api/v1/pipeline/operations/{id}/cancel
func (h *PipelineHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.canceller.CancelOperation(id); err != nil {
		if errors.Is(err, operations.ErrOperationNotFound) {
			err = apierrors.NotFoundError("operation " + id)
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "pipeline run cancelled", slog.String("operation_id", id))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.PipelineRunResponse{
		OperationID: id,
		Status:      string(operations.OperationStatusCancelled),
	})
}
