package domain

import (
	"github.com/shopspring/decimal"
)

// EnrichedEntry is a ledger entry resolved to its customer, trade and USD value
type EnrichedEntry struct {
	LedgerEntry
	UserID     string              `json:"user_id"`
	TradeID    string              `json:"trade_id"`
	MarketPair string              `json:"market_pair"`
	Rate       decimal.NullDecimal `json:"average_price_per_usd"`
	USDVolume  decimal.NullDecimal `json:"usd_volume"`
}

// Key returns the row identity used for exact-duplicate removal after a join
func (e EnrichedEntry) Key() string {
	key := e.LedgerEntry.Key() + "|" + e.UserID + "|" + e.TradeID + "|" + e.MarketPair
	if e.Rate.Valid {
		key += "|" + e.Rate.Decimal.String()
	}
	return key
}
