package exporter

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// TimestampLayout is the wall-clock form of fact timestamps
const TimestampLayout = "2006-01-02 15:04:05.999999999"

func formatTimestamp(r domain.FactRow) string {
	if r.Synthetic {
		return domain.NotApplicable
	}
	return r.Timestamp.Format(TimestampLayout)
}

func formatPair(r domain.FactRow) string {
	if r.Synthetic {
		return domain.NotApplicable
	}
	return r.MarketPair
}

// formatVolume renders a missing value as an empty field
func formatVolume(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}
