package enrichment

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// Assemble collapses the labelled legs to one row per trade, appends the churn rows
// and orders everything by timestamp.
//
// A trade's volume is the mean absolute usd_volume over its legs that have one; a trade
// with no valued leg keeps a missing volume. The earliest leg (by timestamp, then source
// line) represents the trade. Ties on timestamp put real rows before churn rows, and
// churn rows in user order.
func Assemble(c *Cohorts) []domain.FactRow {
	if c == nil {
		return []domain.FactRow{}
	}

	legs := make([]LabelledEntry, len(c.Entries))
	copy(legs, c.Entries)
	sort.SliceStable(legs, func(i, j int) bool {
		if !legs[i].Timestamp.Equal(legs[j].Timestamp) {
			return legs[i].Timestamp.Before(legs[j].Timestamp)
		}
		return legs[i].Line < legs[j].Line
	})

	volumes := CollapseVolumes(c.Entries)

	facts := make([]domain.FactRow, 0, len(volumes)+len(c.Churn))
	emitted := make(map[string]struct{}, len(volumes))
	for _, leg := range legs {
		if _, done := emitted[leg.TradeID]; done {
			continue
		}
		emitted[leg.TradeID] = struct{}{}
		facts = append(facts, domain.FactRow{
			Timestamp:  leg.Timestamp,
			Month:      leg.Month(),
			UserID:     leg.UserID,
			Status:     leg.Status,
			MarketPair: leg.MarketPair,
			USDVolume:  volumes[leg.TradeID],
			TradeID:    leg.TradeID,
		})
	}
	facts = append(facts, c.Churn...)

	SortFacts(facts)
	return facts
}

// CollapseVolumes returns the mean absolute usd volume of each trade's legs
func CollapseVolumes(legs []LabelledEntry) map[string]decimal.NullDecimal {
	type acc struct {
		sum   decimal.Decimal
		count int64
	}
	groups := make(map[string]*acc)
	for _, leg := range legs {
		a, ok := groups[leg.TradeID]
		if !ok {
			a = &acc{sum: decimal.Zero}
			groups[leg.TradeID] = a
		}
		if leg.USDVolume.Valid {
			a.sum = a.sum.Add(leg.USDVolume.Decimal.Abs())
			a.count++
		}
	}

	out := make(map[string]decimal.NullDecimal, len(groups))
	for id, a := range groups {
		if a.count == 0 {
			out[id] = decimal.NullDecimal{}
			continue
		}
		out[id] = decimal.NewNullDecimal(a.sum.Div(decimal.NewFromInt(a.count)))
	}
	return out
}

// SortFacts orders rows by timestamp in place; ties keep real rows first and churn rows by user
func SortFacts(rows []domain.FactRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Synthetic != b.Synthetic {
			return !a.Synthetic
		}
		if a.Synthetic {
			return a.UserID < b.UserID
		}
		return false
	})
}
