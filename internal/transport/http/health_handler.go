package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"tradecohort/internal/services"
	"tradecohort/pkg/contracts"
)

// HealthHandler serves liveness, runtime stats and build metadata. A degraded service
// (no fact table yet, missing inputs) still answers 200 with the reason in the body.
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{service: service, logger: logger.With(slog.String("handler", "health"))}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.HealthCheck(r.Context())
	if status.Status != "ok" {
		h.logger.DebugContext(r.Context(), "service degraded", slog.String("status", status.Status))
	}
	noStore(w)
	render.JSON(w, r, status)
}

// Stats handles GET /api/v1/stats
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	render.JSON(w, r, h.service.SystemStats(r.Context()))
}

// Version handles GET /api/v1/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
