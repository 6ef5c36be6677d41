package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/pkg/contracts/domain"
)

var (
	jan = domain.Month{Year: 2020, Month: time.January}
	feb = domain.Month{Year: 2020, Month: time.February}
	mar = domain.Month{Year: 2020, Month: time.March}
)

func fact(t *testing.T, ts, user string, status domain.Status, pair, volume string) domain.FactRow {
	t.Helper()
	at, err := time.Parse("2006-01-02 15:04", ts)
	require.NoError(t, err)
	row := domain.FactRow{
		Timestamp:  at,
		Month:      domain.MonthOf(at),
		UserID:     user,
		Status:     status,
		MarketPair: pair,
		TradeID:    ts + user,
	}
	if volume != "" {
		row.USDVolume = decimal.NewNullDecimal(decimal.RequireFromString(volume))
	}
	return row
}

func sampleFacts(t *testing.T) *Facts {
	t.Helper()
	churnAt, _ := time.Parse("2006-01-02 15:04", "2020-02-04 12:00")
	return New([]domain.FactRow{
		fact(t, "2020-01-05 10:00", "A", domain.StatusReturning, "XBTZAR", "100"),
		fact(t, "2020-01-05 11:00", "B", domain.StatusReturning, "XBTZAR", "50"),
		fact(t, "2020-01-06 11:30", "B", domain.StatusReturning, "ETHZAR", "30"),
		fact(t, "2020-02-03 09:00", "B", domain.StatusReturning, "XBTZAR", "20"),
		fact(t, "2020-02-03 09:10", "C", domain.StatusNew, "ETHZAR", "60"),
		fact(t, "2020-02-04 12:00", "C", domain.StatusNew, "XBTZAR", ""),
		domain.NewChurnRow("A", feb, churnAt),
	})
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestDimensions(t *testing.T) {
	dims := sampleFacts(t).Dimensions()

	assert.Equal(t, []string{"ETHZAR", "XBTZAR"}, dims.MarketPairs)
	assert.Equal(t, []domain.Month{jan, feb}, dims.Months)
	assert.Equal(t, []domain.Status{domain.StatusNew, domain.StatusReturning, domain.StatusChurned}, dims.Statuses)
	assert.Equal(t, []string{"A", "B", "C"}, dims.Users)
}

func TestFilter(t *testing.T) {
	f := sampleFacts(t)

	tests := []struct {
		name  string
		query Query
		want  int
	}{
		{"everything", Query{}, 7},
		{"month", Query{Month: feb}, 4},
		{"pair", Query{MarketPair: "XBTZAR"}, 4},
		{"status", Query{Status: domain.StatusChurned}, 1},
		{"user and month", Query{UserID: "B", Month: jan}, 2},
		{"no match", Query{Month: mar}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := f.Filter(tt.query)
			assert.NotNil(t, rows)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestPairVolumeByMonth(t *testing.T) {
	got := sampleFacts(t).PairVolumeByMonth("XBTZAR")

	require.Len(t, got, 2)
	assert.Equal(t, jan, got[0].Month)
	assert.Equal(t, 2, got[0].Trades)
	assertDecimal(t, "150", got[0].USDVolume)
	assert.InDelta(t, 150.0/170.0, got[0].Share, 1e-9)
	assert.Equal(t, feb, got[1].Month)
	assert.Equal(t, 2, got[1].Trades)
	assertDecimal(t, "20", got[1].USDVolume)
	assert.InDelta(t, 20.0/170.0, got[1].Share, 1e-9)
}

func TestMonthVolumeByPair(t *testing.T) {
	f := sampleFacts(t)

	got := f.MonthVolumeByPair(jan)
	require.Len(t, got, 2)
	assert.Equal(t, "ETHZAR", got[0].MarketPair)
	assertDecimal(t, "30", got[0].USDVolume)
	assert.InDelta(t, 30.0/180.0, got[0].Share, 1e-9)
	assert.Equal(t, "XBTZAR", got[1].MarketPair)
	assertDecimal(t, "150", got[1].USDVolume)

	t.Run("churn rows never show as a pair", func(t *testing.T) {
		for _, pv := range f.MonthVolumeByPair(feb) {
			assert.NotEqual(t, domain.NotApplicable, pv.MarketPair)
		}
	})

	t.Run("empty month", func(t *testing.T) {
		got := f.MonthVolumeByPair(mar)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestDistributions(t *testing.T) {
	f := sampleFacts(t)

	t.Run("hourly", func(t *testing.T) {
		got := f.HourlyDistribution(jan)
		require.Len(t, got, 2)
		assert.Equal(t, 10, got[0].Bucket)
		assert.Equal(t, 1, got[0].Trades)
		assert.InDelta(t, 1.0/3.0, got[0].TradeShare, 1e-9)
		assert.InDelta(t, 100.0/180.0, got[0].USDShare, 1e-9)
		assert.Equal(t, 11, got[1].Bucket)
		assert.Equal(t, 2, got[1].Trades)
		assertDecimal(t, "80", got[1].USDVolume)
	})

	t.Run("daily counts trades without a volume", func(t *testing.T) {
		got := f.DailyDistribution(feb)
		require.Len(t, got, 2)
		assert.Equal(t, 3, got[0].Bucket)
		assert.Equal(t, 2, got[0].Trades)
		assert.InDelta(t, 1.0, got[0].USDShare, 1e-9)
		assert.Equal(t, 4, got[1].Bucket)
		assert.Equal(t, 1, got[1].Trades)
		assert.InDelta(t, 1.0/3.0, got[1].TradeShare, 1e-9)
		assert.Zero(t, got[1].USDShare)
	})
}

func TestVolumeByPairSelections(t *testing.T) {
	f := sampleFacts(t)

	t.Run("status", func(t *testing.T) {
		got := f.StatusVolumeByPair(domain.StatusNew)
		require.Len(t, got, 2)
		assertDecimal(t, "60", got[0].USDVolume)
		assert.InDelta(t, 1.0, got[0].Share, 1e-9)
		assertDecimal(t, "0", got[1].USDVolume)
		assert.Empty(t, f.StatusVolumeByPair(domain.StatusChurned))
	})

	t.Run("user", func(t *testing.T) {
		got := f.UserVolumeByPair("B")
		require.Len(t, got, 2)
		assert.Equal(t, "ETHZAR", got[0].MarketPair)
		assert.InDelta(t, 0.3, got[0].Share, 1e-9)
		assertDecimal(t, "70", got[1].USDVolume)
		assert.Empty(t, f.UserVolumeByPair("Z"))
	})
}

func TestClientPairCounts(t *testing.T) {
	got := sampleFacts(t).ClientPairCounts()

	require.Len(t, got, 2)
	assert.Equal(t, PairCount{Pairs: 1, Customers: 1, Share: 1.0 / 3.0}, got[0])
	assert.Equal(t, 2, got[1].Pairs)
	assert.Equal(t, 2, got[1].Customers)
}

func TestClientAverages(t *testing.T) {
	got := sampleFacts(t).ClientAverages("B", AverageOptions{})

	require.Len(t, got, 2)
	assert.Equal(t, jan, got[0].Month)
	assert.Equal(t, domain.StatusReturning, got[0].Status)
	assertDecimal(t, "40", got[0].ClientAverage)
	assertDecimal(t, "70", got[0].StatusAverage)
	assertDecimal(t, "60", got[0].MonthlyAverage)

	assert.Equal(t, feb, got[1].Month)
	assertDecimal(t, "20", got[1].ClientAverage)
	assertDecimal(t, "20", got[1].StatusAverage)
	assertDecimal(t, "40", got[1].MonthlyAverage)
}

func TestBelowAverage(t *testing.T) {
	f := sampleFacts(t)

	got := f.BelowAverage(jan, domain.StatusReturning, AverageOptions{})
	assertDecimal(t, "70", got.Mean)
	assert.Equal(t, 2, got.Clients)
	assert.Equal(t, 1, got.Below)
	assert.InDelta(t, 0.5, got.Share, 1e-9)

	empty := f.BelowAverage(mar, domain.StatusNew, AverageOptions{})
	assert.Zero(t, empty.Clients)
	assert.Zero(t, empty.Share)
	assertDecimal(t, "0", empty.Mean)
}

func TestAveragesIncludingChurn(t *testing.T) {
	f := sampleFacts(t)
	withChurn := AverageOptions{IncludeChurn: true}

	assert.Len(t, f.ClientAverages("A", AverageOptions{}), 1, "churn row skipped by default")

	got := f.ClientAverages("A", withChurn)
	require.Len(t, got, 2)
	assert.Equal(t, feb, got[1].Month)
	assert.Equal(t, domain.StatusChurned, got[1].Status)
	assertDecimal(t, "0", got[1].ClientAverage)
	assertDecimal(t, "0", got[1].StatusAverage)
	assert.InDelta(t, 80.0/3.0, got[1].MonthlyAverage.InexactFloat64(), 1e-9, "mean of 20, 60 and the zero churn row")

	b := f.ClientAverages("B", withChurn)
	require.Len(t, b, 2)
	assertDecimal(t, "60", b[0].MonthlyAverage)

	churned := f.BelowAverage(feb, domain.StatusChurned, withChurn)
	assert.Equal(t, 1, churned.Clients)
	assert.Zero(t, churned.Below)
	assert.Zero(t, f.BelowAverage(feb, domain.StatusChurned, AverageOptions{}).Clients)
}

func TestCohortSummary(t *testing.T) {
	got := sampleFacts(t).CohortSummary()

	require.Len(t, got, 2)
	assert.Equal(t, CohortMonth{Month: jan, Active: 2, Returning: 2}, got[0])
	assert.Equal(t, CohortMonth{Month: feb, Active: 2, New: 1, Returning: 1, Churned: 1, ChurnRate: 0.5}, got[1])
}

func TestEmptyFacts(t *testing.T) {
	for _, f := range []*Facts{New(nil), nil} {
		assert.Zero(t, f.Len())
		assert.Empty(t, f.Rows())
		assert.NotNil(t, f.MarketPairs())
		assert.NotNil(t, f.Months())
		assert.NotNil(t, f.PairVolumeByMonth("XBTZAR"))
		assert.NotNil(t, f.HourlyDistribution(jan))
		assert.NotNil(t, f.ClientPairCounts())
		assert.NotNil(t, f.ClientAverages("A", AverageOptions{IncludeChurn: true}))
		assert.NotNil(t, f.CohortSummary())
	}
}
