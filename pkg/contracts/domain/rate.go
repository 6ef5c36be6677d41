package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTick is one raw USD price observation for a currency
type RateTick struct {
	Currency    string          `json:"currency"`
	ReferenceAt time.Time       `json:"reference_at"`
	PricePerUSD decimal.Decimal `json:"average_price_per_usd"`
}

// HourlyRate is the mean USD price of a currency over one hour bucket
type HourlyRate struct {
	Currency    string          `json:"currency"`
	Hour        time.Time       `json:"hour"`
	PricePerUSD decimal.Decimal `json:"average_price_per_usd"`
	Ticks       int             `json:"ticks"`
}

// RateKey identifies an hourly rate bucket
type RateKey struct {
	Currency string
	Hour     time.Time
}

// Key returns the bucket key of the rate
func (r HourlyRate) Key() RateKey {
	return RateKey{Currency: r.Currency, Hour: r.Hour}
}
