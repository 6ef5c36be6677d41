package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/pkg/contracts/domain"
)

func TestJoinLedger(t *testing.T) {
	at := ts(t, "2020-01-05 10:00")
	entries := []domain.LedgerEntry{
		{AccountID: "1", ForeignID: "T1", Currency: "XBT", BalanceDelta: dec("0.5"), Timestamp: at, Line: 2},
		{AccountID: "1", ForeignID: "T1", Currency: "XBT", BalanceDelta: dec("0.5"), Timestamp: at, Line: 3}, // exact duplicate
		{AccountID: "2", ForeignID: "T1", Currency: "ZAR", BalanceDelta: dec("-100"), Timestamp: at, Line: 4},
		{AccountID: "9", ForeignID: "T1", Currency: "XBT", BalanceDelta: dec("1"), Timestamp: at, Line: 5},   // unknown account
		{AccountID: "1", ForeignID: "", Currency: "ZAR", BalanceDelta: dec("500"), Timestamp: at, Line: 6},   // deposit
		{AccountID: "1", ForeignID: "X42", Currency: "ZAR", BalanceDelta: dec("-5"), Timestamp: at, Line: 7}, // not a trade
	}
	accounts := []domain.Account{
		{ID: "1", UserID: "A"},
		{ID: "2", UserID: "B"},
		{ID: "1", UserID: "A"}, // duplicate account row
	}
	trades := []domain.Trade{{ID: "T1", BaseCurrency: "XBT", CounterCurrency: "ZAR"}}

	rows, stats := JoinLedger(entries, accounts, trades)

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].UserID)
	assert.Equal(t, "XBT/ZAR", rows[0].MarketPair)
	assert.Equal(t, "T1", rows[0].TradeID)
	assert.Equal(t, "B", rows[1].UserID)

	assert.Equal(t, 6, stats.LedgerRows)
	assert.Equal(t, 1, stats.DroppedNoUser)
	assert.Equal(t, 2, stats.DroppedNoTrade)
	assert.Equal(t, 2, stats.Output)
	assert.Equal(t, 5, stats.DuplicatesPruned, "duplicate account rows fan out, then collapse with the duplicate leg")
}

func TestJoinConservesTradeLegs(t *testing.T) {
	at := ts(t, "2020-02-01 09:00")
	var entries []domain.LedgerEntry
	for i, delta := range []string{"1", "-1", "2", "-2"} {
		entries = append(entries, domain.LedgerEntry{
			AccountID: "1", ForeignID: "T" + string(rune('1'+i/2)), Currency: "XBT",
			BalanceDelta: dec(delta), Timestamp: at, Line: i + 2,
		})
	}
	rows, stats := JoinLedger(entries,
		[]domain.Account{{ID: "1", UserID: "A"}},
		[]domain.Trade{{ID: "T1", BaseCurrency: "XBT", CounterCurrency: "ZAR"}, {ID: "T2", BaseCurrency: "ETH", CounterCurrency: "XBT"}})

	assert.Len(t, rows, len(entries))
	assert.Zero(t, stats.DuplicatesPruned)
	assert.Equal(t, "ETH/XBT", rows[3].MarketPair)
}

func TestValuate(t *testing.T) {
	rows := []domain.EnrichedEntry{
		{LedgerEntry: domain.LedgerEntry{Currency: "XBT", BalanceDelta: dec("-0.5"), Timestamp: ts(t, "2020-01-01 10:45")}, UserID: "A", TradeID: "T1", MarketPair: "XBT/ZAR"},
		{LedgerEntry: domain.LedgerEntry{Currency: "ZAR", BalanceDelta: dec("100"), Timestamp: ts(t, "2020-01-01 10:45")}, UserID: "A", TradeID: "T1", MarketPair: "XBT/ZAR"},
	}
	book := NewRateBook([]domain.HourlyRate{{Currency: "XBT", Hour: ts(t, "2020-01-01 10:00"), PricePerUSD: dec("8000")}})

	out, stats := Valuate(rows, book, nil)
	require.Len(t, out, 2)

	require.True(t, out[0].USDVolume.Valid)
	assert.True(t, dec("-4000").Equal(out[0].USDVolume.Decimal))
	assert.False(t, out[1].USDVolume.Valid, "missing rate propagates as missing volume")
	assert.False(t, out[1].Rate.Valid)
	assert.Equal(t, 1, stats.Valued)
	assert.Equal(t, 1, stats.MissingRate)

	assert.False(t, rows[0].USDVolume.Valid, "inputs are not mutated")
}
