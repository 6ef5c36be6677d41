package http_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/internal/analytics"
	"tradecohort/pkg/contracts/domain"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestViewsPairsByMonth(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/views/pairs?month=2020-01")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows := decode[[]analytics.PairVolume](t, rec.Body.Bytes())
	require.Len(t, rows, 2)
	byPair := map[string]analytics.PairVolume{}
	for _, r := range rows {
		byPair[r.MarketPair] = r
	}
	assert.True(t, decimal.NewFromInt(100).Equal(byPair["XBT/ZAR"].USDVolume))
	assert.True(t, decimal.NewFromInt(50).Equal(byPair["ETH/ZAR"].USDVolume))
	assert.InDelta(t, 2.0/3.0, byPair["XBT/ZAR"].Share, 1e-9)
}

func TestViewsMonthsByPair(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/views/months?pair=XBT/ZAR")
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decode[[]analytics.MonthVolume](t, rec.Body.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, "2020-01", rows[0].Month.String())
	assert.True(t, decimal.NewFromInt(50).Equal(rows[1].USDVolume))
}

func TestViewsHourly(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/views/hourly?month=2020-01")
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decode[[]analytics.Bucket](t, rec.Body.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, 10, rows[0].Bucket)
	assert.Equal(t, 14, rows[1].Bucket)
}

func TestViewsCohorts(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/views/cohorts")
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decode[[]analytics.CohortMonth](t, rec.Body.Bytes())
	require.Len(t, rows, 2)
	feb := rows[1]
	assert.Equal(t, 2, feb.Active)
	assert.Equal(t, 1, feb.New)
	assert.Equal(t, 1, feb.Returning)
	assert.Equal(t, 1, feb.Churned)
	assert.InDelta(t, 0.5, feb.ChurnRate, 1e-9)
}

func TestViewsCSVFormat(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	tests := []struct {
		target   string
		filename string
		header   string
		rows     int
	}{
		{"/views/cohorts?format=csv", "cohorts.csv", "year_month,active,new,returning,reactivated,churned,churn_rate", 2},
		{"/views/pairs?month=2020-02&format=csv", "pairs_2020-02.csv", "market_pair,trades,usd_volume,usd_share", 1},
		{"/views/daily?month=2020-01&format=csv", "daily_2020-01.csv", "day,trades,trade_share,usd_volume,usd_share", 2},
		{"/views/clients/pair-counts?format=csv", "client_pair_counts.csv", "pairs,customers,share", 2},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, router, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.filename)

			lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
			assert.Equal(t, tt.header, strings.TrimSpace(lines[0]))
			assert.Len(t, lines, tt.rows+1)
		})
	}
}

func TestViewsUserEndpoints(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/views/users/B/pairs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]analytics.PairVolume](t, rec.Body.Bytes()), 2)

	rec = get(t, router, "/views/users/B/averages")
	require.Equal(t, http.StatusOK, rec.Code)
	averages := decode[[]analytics.ClientAverage](t, rec.Body.Bytes())
	require.Len(t, averages, 2)
	assert.Equal(t, domain.StatusReturning, averages[0].Status)
	assert.True(t, decimal.NewFromInt(50).Equal(averages[0].ClientAverage))
	assert.True(t, decimal.NewFromInt(75).Equal(averages[0].StatusAverage))

	rec = get(t, router, "/views/users/Z/averages")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewsBelowAverage(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	rec := get(t, router, "/views/below-average?month=2020-01&status=Returning")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[analytics.BelowAverage](t, rec.Body.Bytes())
	assert.Equal(t, 2, res.Clients)
	assert.Equal(t, 1, res.Below)
	assert.True(t, decimal.NewFromInt(75).Equal(res.Mean))
}

func TestViewsAveragesIncludeChurn(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	tests := []struct {
		name    string
		query   string
		clients int
	}{
		{"churn rows skipped by default", "", 0},
		{"explicit false", "&include_churn=false", 0},
		{"churn rows counted", "&include_churn=true", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, "/views/below-average?month=2020-02&status=Churned"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			res := decode[analytics.BelowAverage](t, rec.Body.Bytes())
			assert.Equal(t, tt.clients, res.Clients)
		})
	}

	rec := get(t, router, "/views/users/A/averages?include_churn=1")
	require.Equal(t, http.StatusOK, rec.Code)
	averages := decode[[]analytics.ClientAverage](t, rec.Body.Bytes())
	require.Len(t, averages, 2)
	assert.Equal(t, domain.StatusChurned, averages[1].Status)
	assert.True(t, decimal.Zero.Equal(averages[1].ClientAverage))

	rec = get(t, router, "/views/users/A/averages?include_churn=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewsValidation(t *testing.T) {
	router := newFactsRouter(t, publishedService(t))

	for _, target := range []string{
		"/views/pairs",
		"/views/pairs?month=January",
		"/views/months",
		"/views/status?status=Gone",
		"/views/below-average?month=2020-01",
		"/views/cohorts?format=pdf",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, router, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}
