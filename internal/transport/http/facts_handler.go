package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tradecohort/internal/analytics"
	apierrors "tradecohort/internal/errors"
	"tradecohort/internal/exporter"
	"tradecohort/internal/middleware"
	api "tradecohort/pkg/contracts/api/v1"
	"tradecohort/pkg/contracts/domain"
)

// FactsHandler serves the fact table and its downloads
type FactsHandler struct {
	facts        FactReader
	workbook     *exporter.WorkbookWriter
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewFactsHandler creates a facts handler
func NewFactsHandler(facts FactReader, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FactsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactsHandler{
		facts:        facts,
		workbook:     exporter.NewWorkbookWriter(logger),
		validator:    validator,
		logger:       logger.With(slog.String("component", "facts_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /facts routes
func (h *FactsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetFacts)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/export.xlsx", h.ExportWorkbook)
	return r
}

// GetDimensions handles GET /api/v1/dimensions
func (h *FactsHandler) GetDimensions(w http.ResponseWriter, r *http.Request) {
	dims, err := h.facts.Dimensions()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, dims)
}

// GetFacts handles GET /api/v1/facts?month=&pair=&status=&user=&format=
func (h *FactsHandler) GetFacts(w http.ResponseWriter, r *http.Request) {
	var q api.FactsQuery
	rows, ok := h.query(w, r, &q)
	if !ok {
		return
	}
	if q.Format == api.FormatCSV {
		h.streamCSV(w, r, rows)
		return
	}
	render.JSON(w, r, map[string]any{
		"count": len(rows),
		"facts": rows,
	})
}

// ExportCSV handles GET /api/v1/facts/export.csv
func (h *FactsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var q api.FactsQuery
	rows, ok := h.query(w, r, &q)
	if !ok {
		return
	}
	h.streamCSV(w, r, rows)
}

// ExportWorkbook handles GET /api/v1/facts/export.xlsx
func (h *FactsHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	var q api.FactsQuery
	rows, ok := h.query(w, r, &q)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="final_df.xlsx"`)
	if err := h.workbook.Write(w, rows); err != nil {
		h.logger.ErrorContext(r.Context(), "workbook export failed", slog.String("error", err.Error()))
	}
}

func (h *FactsHandler) streamCSV(w http.ResponseWriter, r *http.Request, rows []domain.FactRow) {
	err := writeCSV(w, "final_df", func(w http.ResponseWriter) error {
		return exporter.WriteFacts(w, rows)
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "csv export failed", slog.String("error", err.Error()))
	}
}

// query binds the fact filters and runs them. It reports false after writing an error.
func (h *FactsHandler) query(w http.ResponseWriter, r *http.Request, q *api.FactsQuery) ([]domain.FactRow, bool) {
	if err := h.validator.BindQuery(r, q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	filter := analytics.Query{
		MarketPair: q.Pair,
		UserID:     q.User,
	}
	if q.Month != "" {
		filter.Month, _ = domain.ParseMonth(q.Month)
	}
	if q.Status != "" {
		filter.Status, _ = domain.ParseStatus(q.Status)
	}

	rows, err := h.facts.Query(filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return rows, true
}
