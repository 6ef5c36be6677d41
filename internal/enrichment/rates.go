package enrichment

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// HourFunc maps a normalized timestamp to its rate bucket
type HourFunc func(time.Time) time.Time

// Hour bucketing modes
const (
	BucketFloor = "floor"
	BucketRound = "round"
)

// BucketFunc returns the bucketing function for a mode name; empty means floor
func BucketFunc(mode string) (HourFunc, error) {
	switch mode {
	case BucketFloor, "":
		return domain.FloorHour, nil
	case BucketRound:
		return domain.RoundHour, nil
	}
	return nil, fmt.Errorf("unknown hour bucket mode %q", mode)
}

// ResolveHourlyRates averages the ticks of each (currency, hour) bucket.
// Hours without ticks get no row. Output is ordered by currency, then hour.
func ResolveHourlyRates(ticks []domain.RateTick, bucket HourFunc) []domain.HourlyRate {
	if bucket == nil {
		bucket = domain.FloorHour
	}

	type acc struct {
		sum   decimal.Decimal
		count int
	}
	groups := make(map[domain.RateKey]*acc)
	for _, tick := range ticks {
		key := domain.RateKey{Currency: tick.Currency, Hour: bucket(tick.ReferenceAt)}
		a, ok := groups[key]
		if !ok {
			a = &acc{sum: decimal.Zero}
			groups[key] = a
		}
		a.sum = a.sum.Add(tick.PricePerUSD)
		a.count++
	}

	out := make([]domain.HourlyRate, 0, len(groups))
	for key, a := range groups {
		out = append(out, domain.HourlyRate{
			Currency:    key.Currency,
			Hour:        key.Hour,
			PricePerUSD: a.sum.Div(decimal.NewFromInt(int64(a.count))),
			Ticks:       a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency < out[j].Currency
		}
		return out[i].Hour.Before(out[j].Hour)
	})
	return out
}

// RateBook looks up hourly rates by currency and hour bucket
type RateBook struct {
	rates map[domain.RateKey]decimal.Decimal
}

// NewRateBook indexes hourly rates; at most one rate exists per bucket
func NewRateBook(rates []domain.HourlyRate) *RateBook {
	book := &RateBook{rates: make(map[domain.RateKey]decimal.Decimal, len(rates))}
	for _, r := range rates {
		book.rates[r.Key()] = r.PricePerUSD
	}
	return book
}

// Lookup returns the rate of currency in the given hour bucket
func (b *RateBook) Lookup(currency string, hour time.Time) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Decimal{}, false
	}
	rate, ok := b.rates[domain.RateKey{Currency: currency, Hour: hour}]
	return rate, ok
}

// Len returns the number of buckets
func (b *RateBook) Len() int {
	if b == nil {
		return 0
	}
	return len(b.rates)
}
