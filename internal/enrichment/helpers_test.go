package enrichment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecohort/pkg/contracts/domain"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return parsed
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func month(t *testing.T, s string) domain.Month {
	t.Helper()
	m, err := domain.ParseMonth(s)
	require.NoError(t, err)
	return m
}

// valued builds a joined and valued leg
func valued(t *testing.T, user, trade, at, usd string) domain.EnrichedEntry {
	t.Helper()
	return domain.EnrichedEntry{
		LedgerEntry: domain.LedgerEntry{
			AccountID:    "acc-" + user,
			ForeignID:    trade,
			Currency:     "XBT",
			BalanceDelta: dec(usd),
			Timestamp:    ts(t, at),
		},
		UserID:     user,
		TradeID:    trade,
		MarketPair: "XBT/ZAR",
		Rate:       decimal.NewNullDecimal(decimal.NewFromInt(1)),
		USDVolume:  decimal.NewNullDecimal(dec(usd)),
	}
}

// activity builds one leg per user for the given month (2020-MM-10 12:00)
func activity(t *testing.T, mm string, users ...string) []domain.EnrichedEntry {
	t.Helper()
	out := make([]domain.EnrichedEntry, 0, len(users))
	for _, u := range users {
		out = append(out, valued(t, u, "t-"+mm+"-"+u, "2020-"+mm+"-10 12:00", "10"))
	}
	return out
}

func window(t *testing.T, months ...string) Window {
	t.Helper()
	ms := make([]domain.Month, 0, len(months))
	for _, s := range months {
		ms = append(ms, month(t, s))
	}
	w, err := NewWindow(ms)
	require.NoError(t, err)
	return w
}
