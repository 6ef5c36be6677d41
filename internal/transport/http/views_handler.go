package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tradecohort/internal/analytics"
	apierrors "tradecohort/internal/errors"
	"tradecohort/internal/exporter"
	"tradecohort/internal/middleware"
	api "tradecohort/pkg/contracts/api/v1"
	"tradecohort/pkg/contracts/domain"
)

// ViewsHandler serves the analytical views over the fact table. Every tabular
// view also downloads as CSV with ?format=csv.
type ViewsHandler struct {
	facts        FactReader
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewViewsHandler creates a views handler
func NewViewsHandler(facts FactReader, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ViewsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewsHandler{
		facts:        facts,
		validator:    validator,
		logger:       logger.With(slog.String("component", "views_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /views routes
func (h *ViewsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/pairs", h.PairsByMonth)
	r.Get("/months", h.MonthsByPair)
	r.Get("/hourly", h.Hourly)
	r.Get("/daily", h.Daily)
	r.Get("/status", h.PairsByStatus)
	r.Get("/cohorts", h.Cohorts)
	r.Get("/below-average", h.BelowAverage)
	r.Get("/clients/pair-counts", h.ClientPairCounts)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Use(h.UserCtx)
		r.Get("/pairs", h.UserPairs)
		r.Get("/averages", h.UserAverages)
	})

	return r
}

// UserCtx validates the user path parameter
func (h *ViewsHandler) UserCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" || len(userID) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("userID", "userID must be 1 to 64 characters"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PairsByMonth handles GET /views/pairs?month=
func (h *ViewsHandler) PairsByMonth(w http.ResponseWriter, r *http.Request) {
	var q api.MonthQuery
	if !h.bind(w, r, &q) {
		return
	}
	month, _ := domain.ParseMonth(q.Month)
	rows, err := h.facts.MonthVolumeByPair(month)
	h.render(w, r, err, q.Format, "pairs_"+q.Month, rows, func() exporter.Table { return exporter.PairVolumeTable(rows) })
}

// MonthsByPair handles GET /views/months?pair=
func (h *ViewsHandler) MonthsByPair(w http.ResponseWriter, r *http.Request) {
	var q api.PairQuery
	if !h.bind(w, r, &q) {
		return
	}
	rows, err := h.facts.PairVolumeByMonth(q.Pair)
	h.render(w, r, err, q.Format, "months", rows, func() exporter.Table { return exporter.MonthVolumeTable(rows) })
}

// Hourly handles GET /views/hourly?month=
func (h *ViewsHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	var q api.MonthQuery
	if !h.bind(w, r, &q) {
		return
	}
	month, _ := domain.ParseMonth(q.Month)
	rows, err := h.facts.HourlyDistribution(month)
	h.render(w, r, err, q.Format, "hourly_"+q.Month, rows, func() exporter.Table { return exporter.BucketTable("hour", rows) })
}

// Daily handles GET /views/daily?month=
func (h *ViewsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	var q api.MonthQuery
	if !h.bind(w, r, &q) {
		return
	}
	month, _ := domain.ParseMonth(q.Month)
	rows, err := h.facts.DailyDistribution(month)
	h.render(w, r, err, q.Format, "daily_"+q.Month, rows, func() exporter.Table { return exporter.BucketTable("day", rows) })
}

// PairsByStatus handles GET /views/status?status=
func (h *ViewsHandler) PairsByStatus(w http.ResponseWriter, r *http.Request) {
	var q api.StatusQuery
	if !h.bind(w, r, &q) {
		return
	}
	status, _ := domain.ParseStatus(q.Status)
	rows, err := h.facts.StatusVolumeByPair(status)
	h.render(w, r, err, q.Format, "status_"+q.Status, rows, func() exporter.Table { return exporter.PairVolumeTable(rows) })
}

// UserPairs handles GET /views/users/{userID}/pairs
func (h *ViewsHandler) UserPairs(w http.ResponseWriter, r *http.Request) {
	var q api.FormatQuery
	if !h.bind(w, r, &q) {
		return
	}
	userID := chi.URLParam(r, "userID")
	rows, err := h.facts.UserVolumeByPair(userID)
	h.render(w, r, err, q.Format, "user_pairs", rows, func() exporter.Table { return exporter.PairVolumeTable(rows) })
}

// UserAverages handles GET /views/users/{userID}/averages?include_churn=
func (h *ViewsHandler) UserAverages(w http.ResponseWriter, r *http.Request) {
	var q api.AveragesQuery
	if !h.bind(w, r, &q) {
		return
	}
	userID := chi.URLParam(r, "userID")
	rows, err := h.facts.ClientAverages(userID, averageOptions(q.IncludeChurn))
	if err == nil && len(rows) == 0 {
		err = apierrors.NotFoundError("user " + userID)
	}
	h.render(w, r, err, q.Format, "user_averages", rows, func() exporter.Table { return exporter.ClientAverageTable(rows) })
}

// ClientPairCounts handles GET /views/clients/pair-counts
func (h *ViewsHandler) ClientPairCounts(w http.ResponseWriter, r *http.Request) {
	var q api.FormatQuery
	if !h.bind(w, r, &q) {
		return
	}
	rows, err := h.facts.ClientPairCounts()
	h.render(w, r, err, q.Format, "client_pair_counts", rows, func() exporter.Table { return exporter.PairCountTable(rows) })
}

// Cohorts handles GET /views/cohorts
func (h *ViewsHandler) Cohorts(w http.ResponseWriter, r *http.Request) {
	var q api.FormatQuery
	if !h.bind(w, r, &q) {
		return
	}
	rows, err := h.facts.CohortSummary()
	h.render(w, r, err, q.Format, "cohorts", rows, func() exporter.Table { return exporter.CohortTable(rows) })
}

// BelowAverage handles GET /views/below-average?month=&status=&include_churn=
func (h *ViewsHandler) BelowAverage(w http.ResponseWriter, r *http.Request) {
	var q api.BelowAverageQuery
	if !h.bind(w, r, &q) {
		return
	}
	month, _ := domain.ParseMonth(q.Month)
	status, _ := domain.ParseStatus(q.Status)
	result, err := h.facts.BelowAverage(month, status, averageOptions(q.IncludeChurn))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// averageOptions reads an include_churn value that already passed the boolean check
func averageOptions(includeChurn string) analytics.AverageOptions {
	include, _ := strconv.ParseBool(includeChurn)
	return analytics.AverageOptions{IncludeChurn: include}
}

func (h *ViewsHandler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := h.validator.BindQuery(r, dst); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

func (h *ViewsHandler) render(w http.ResponseWriter, r *http.Request, err error, format, name string, v any, table func() exporter.Table) {
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := respond(w, r, format, name, v, table); err != nil {
		h.logger.ErrorContext(r.Context(), "view export failed",
			slog.String("view", name),
			slog.String("error", err.Error()))
	}
}
