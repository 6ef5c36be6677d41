package enrichment

import (
	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// ValuationStats counts rate lookups
type ValuationStats struct {
	Rows        int `json:"rows"`
	Valued      int `json:"valued"`
	MissingRate int `json:"missing_rate"`
	Duplicates  int `json:"duplicates_pruned"`
}

// Valuate attaches the hourly rate of each row's currency and computes
// usd_volume = balance_delta * rate. A missing rate leaves both values missing.
func Valuate(rows []domain.EnrichedEntry, book *RateBook, bucket HourFunc) ([]domain.EnrichedEntry, ValuationStats) {
	if bucket == nil {
		bucket = domain.FloorHour
	}

	valued := make([]domain.EnrichedEntry, 0, len(rows))
	for _, r := range rows {
		row := r
		if rate, ok := book.Lookup(r.Currency, bucket(r.Timestamp)); ok {
			row.Rate = decimal.NewNullDecimal(rate)
			row.USDVolume = decimal.NewNullDecimal(r.BalanceDelta.Mul(rate))
		} else {
			row.Rate = decimal.NullDecimal{}
			row.USDVolume = decimal.NullDecimal{}
		}
		valued = append(valued, row)
	}

	out, removed := dedupe(valued)
	stats := ValuationStats{Rows: len(out), Duplicates: removed}
	for _, r := range out {
		if r.USDVolume.Valid {
			stats.Valued++
		} else {
			stats.MissingRate++
		}
	}
	return out, stats
}
