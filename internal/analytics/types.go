package analytics

import (
	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// PairVolume is the traded volume of one market pair within a selection
type PairVolume struct {
	MarketPair string          `json:"market_pair"`
	Trades     int             `json:"trades"`
	USDVolume  decimal.Decimal `json:"usd_volume"`
	Share      float64         `json:"usd_share"`
}

// MonthVolume is the traded volume of one month within a selection
type MonthVolume struct {
	Month     domain.Month    `json:"month"`
	Trades    int             `json:"trades"`
	USDVolume decimal.Decimal `json:"usd_volume"`
	Share     float64         `json:"usd_share"`
}

// Bucket is one bar of an hour-of-day or day-of-month distribution
type Bucket struct {
	Bucket     int             `json:"bucket"`
	Trades     int             `json:"trades"`
	TradeShare float64         `json:"trade_share"`
	USDVolume  decimal.Decimal `json:"usd_volume"`
	USDShare   float64         `json:"usd_share"`
}

// PairCount counts the customers that traded a given number of distinct pairs
type PairCount struct {
	Pairs     int     `json:"pairs"`
	Customers int     `json:"customers"`
	Share     float64 `json:"share"`
}

// ClientAverage compares one customer's mean trade volume in a month with the
// mean of their status cohort and with the whole month
type ClientAverage struct {
	Month          domain.Month    `json:"month"`
	Status         domain.Status   `json:"status"`
	ClientAverage  decimal.Decimal `json:"avg_client_volume"`
	StatusAverage  decimal.Decimal `json:"avg_status_volume"`
	MonthlyAverage decimal.Decimal `json:"avg_monthly_volume"`
}

// BelowAverage reports how many customers of a cohort traded below the cohort mean
type BelowAverage struct {
	Month   domain.Month    `json:"month"`
	Status  domain.Status   `json:"status"`
	Mean    decimal.Decimal `json:"mean"`
	Clients int             `json:"clients"`
	Below   int             `json:"below"`
	Share   float64         `json:"share"`
}

// CohortMonth counts distinct customers per status in one month
type CohortMonth struct {
	Month       domain.Month `json:"month"`
	Active      int          `json:"active"`
	New         int          `json:"new"`
	Returning   int          `json:"returning"`
	Reactivated int          `json:"reactivated"`
	Churned     int          `json:"churned"`
	Unknown     int          `json:"unknown,omitempty"`
	ChurnRate   float64      `json:"churn_rate"`
}

// Dimensions lists the values each filter can take
type Dimensions struct {
	MarketPairs []string        `json:"market_pairs"`
	Months      []domain.Month  `json:"months"`
	Statuses    []domain.Status `json:"statuses"`
	Users       []string        `json:"users"`
}
