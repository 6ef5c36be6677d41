package domain

import (
	"fmt"
	"time"
)

// MonthLayout is the text form of a Month, e.g. "2020-01"
const MonthLayout = "2006-01"

// Month identifies a calendar month bucket
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month bucket containing t
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a month in MonthLayout form
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// String returns the month in MonthLayout form
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether the month is unset
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns the first instant of the month
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Before reports whether m is strictly earlier than o
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Label returns the month formatted for display, e.g. "Jan 2020"
func (m Month) Label() string {
	return m.Start().Format("Jan 2006")
}

// MarshalText implements encoding.TextMarshaler
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Month) UnmarshalText(text []byte) error {
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// NormalizeTime drops the zone offset of t while keeping its wall-clock reading.
// All timestamps are bucketed in this naive representation.
func NormalizeTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FloorHour truncates a normalized timestamp to the start of its hour
func FloorHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

// RoundHour rounds a normalized timestamp to the nearest hour, halves rounding up
func RoundHour(t time.Time) time.Time {
	return t.Round(time.Hour)
}
