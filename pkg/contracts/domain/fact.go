package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotApplicable is the display value for fields that synthetic rows do not carry
const NotApplicable = "-"

// FactColumns is the column order of the exported fact table
var FactColumns = []string{"timestamp", "month", "user_id", "status", "market_pair", "usd_volume"}

// FactRow is one row of the final per-trade fact table
type FactRow struct {
	Timestamp  time.Time           `json:"timestamp"`
	Month      Month               `json:"month"`
	UserID     string              `json:"user_id"`
	Status     Status              `json:"status"`
	MarketPair string              `json:"market_pair"`
	USDVolume  decimal.NullDecimal `json:"usd_volume"`
	// TradeID is empty for synthetic rows
	TradeID   string `json:"trade_id,omitempty"`
	Synthetic bool   `json:"synthetic"`
}

// NewChurnRow builds the zero-volume placeholder that keeps a churned customer
// visible in the month they stopped trading
func NewChurnRow(userID string, month Month, at time.Time) FactRow {
	return FactRow{
		Timestamp:  at,
		Month:      month,
		UserID:     userID,
		Status:     StatusChurned,
		MarketPair: NotApplicable,
		USDVolume:  decimal.NewNullDecimal(decimal.Zero),
		Synthetic:  true,
	}
}

// Day returns the day of month of a real row, zero for synthetic rows
func (r FactRow) Day() int {
	if r.Synthetic {
		return 0
	}
	return r.Timestamp.Day()
}

// Hour returns the hour of day of a real row, -1 for synthetic rows
func (r FactRow) Hour() int {
	if r.Synthetic {
		return -1
	}
	return r.Timestamp.Hour()
}

// Volume returns the usd volume, treating a missing value as zero
func (r FactRow) Volume() decimal.Decimal {
	if !r.USDVolume.Valid {
		return decimal.Zero
	}
	return r.USDVolume.Decimal
}
