package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/internal/analytics"
	apierrors "tradecohort/internal/errors"
	"tradecohort/internal/middleware"
	"tradecohort/internal/services"
	"tradecohort/internal/shared/testutil"
	handlers "tradecohort/internal/transport/http"
)

func newFactsRouter(t *testing.T, facts handlers.FactReader) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	validator := middleware.NewValidator(logger)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	factsHandler := handlers.NewFactsHandler(facts, validator, logger, errorHandler)
	viewsHandler := handlers.NewViewsHandler(facts, validator, logger, errorHandler)

	r := chi.NewRouter()
	r.Get("/dimensions", factsHandler.GetDimensions)
	r.Mount("/facts", factsHandler.Routes())
	r.Mount("/views", viewsHandler.Routes())
	return r
}

func publishedService(t *testing.T) *services.FactService {
	t.Helper()
	s := services.NewFactService(nil, nil)
	s.Publish(testutil.SampleFacts())
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestFactsHandlerFilters(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all rows", "", 5},
		{"month", "?month=2020-02", 3},
		{"status", "?status=Churned", 1},
		{"pair", "?pair=XBT/ZAR", 3},
		{"user and month", "?user=B&month=2020-01", 1},
		{"no match", "?user=Z", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, "/facts/"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var body struct {
				Count int               `json:"count"`
				Facts []json.RawMessage `json:"facts"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Count)
			assert.Len(t, body.Facts, tt.want)
		})
	}
}

func TestFactsHandlerRejectsInvalidFilters(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	for _, query := range []string{"?month=2020-13", "?status=Lost", "?pair=XBTZAR", "?format=xml"} {
		t.Run(query, func(t *testing.T) {
			rec := get(t, router, "/facts/"+query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
		})
	}
}

func TestFactsHandlerNotReady(t *testing.T) {
	router := newFactsRouter(t, services.NewFactService(nil, nil))

	for _, target := range []string{"/facts/", "/dimensions", "/views/cohorts"} {
		rec := get(t, router, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "FACTS_NOT_READY")
	}
}

func TestFactsHandlerExportCSV(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/facts/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "final_df.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "timestamp,month,user_id,status,market_pair,usd_volume", strings.TrimSpace(lines[0]))

	rec = get(t, router, "/facts/?status=New&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, strings.Split(strings.TrimSpace(rec.Body.String()), "\n"), 2)
}

func TestFactsHandlerExportWorkbook(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/facts/export.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "final_df.xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestDimensions(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/dimensions")
	require.Equal(t, http.StatusOK, rec.Code)

	var dims analytics.Dimensions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dims))
	assert.Contains(t, dims.MarketPairs, "XBT/ZAR")
	assert.Len(t, dims.Months, 2)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, dims.Users)
}
