package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// SampleFacts is a small fact table over January and February 2020.
// Jan: A trades XBT/ZAR 100, B trades ETH/ZAR 50 (both Returning).
// Feb: B trades XBT/ZAR 30 (Returning), C trades XBT/ZAR 20 (New), A churns.
func SampleFacts() []domain.FactRow {
	jan := domain.Month{Year: 2020, Month: time.January}
	feb := jan.Next()
	usd := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}
	return []domain.FactRow{
		{Timestamp: time.Date(2020, 1, 5, 10, 15, 0, 0, time.UTC), Month: jan, UserID: "A",
			Status: domain.StatusReturning, MarketPair: "XBT/ZAR", USDVolume: usd("100"), TradeID: "1"},
		{Timestamp: time.Date(2020, 1, 6, 14, 0, 0, 0, time.UTC), Month: jan, UserID: "B",
			Status: domain.StatusReturning, MarketPair: "ETH/ZAR", USDVolume: usd("50"), TradeID: "2"},
		{Timestamp: time.Date(2020, 2, 3, 10, 45, 0, 0, time.UTC), Month: feb, UserID: "B",
			Status: domain.StatusReturning, MarketPair: "XBT/ZAR", USDVolume: usd("30"), TradeID: "3"},
		{Timestamp: time.Date(2020, 2, 4, 9, 0, 0, 0, time.UTC), Month: feb, UserID: "C",
			Status: domain.StatusNew, MarketPair: "XBT/ZAR", USDVolume: usd("20"), TradeID: "4"},
		domain.NewChurnRow("A", feb, feb.Start()),
	}
}
