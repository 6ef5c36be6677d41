package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one signed balance movement in a customer account
type LedgerEntry struct {
	ID           string          `json:"id,omitempty"`
	Line         int             `json:"-"` // source row, not part of row identity
	AccountID    string          `json:"account_id"`
	ForeignID    string          `json:"foreign_id,omitempty"` // empty when the entry has no originating record
	Currency     string          `json:"currency"`
	BalanceDelta decimal.Decimal `json:"balance_delta"`
	Timestamp    time.Time       `json:"timestamp"`
}

// HasForeignID reports whether the entry references another record
func (e LedgerEntry) HasForeignID() bool {
	return e.ForeignID != ""
}

// Month returns the calendar month bucket of the entry
func (e LedgerEntry) Month() Month {
	return MonthOf(e.Timestamp)
}

// Day returns the day of month of the entry
func (e LedgerEntry) Day() int {
	return e.Timestamp.Day()
}

// Hour returns the hour of day of the entry
func (e LedgerEntry) Hour() int {
	return e.Timestamp.Hour()
}

// HourBucket returns the hour-floored timestamp used to look up rates
func (e LedgerEntry) HourBucket() time.Time {
	return FloorHour(e.Timestamp)
}

// Key returns the identity of the entry used for exact-duplicate removal
func (e LedgerEntry) Key() string {
	return e.ID + "|" + e.AccountID + "|" + e.ForeignID + "|" + e.Currency + "|" +
		e.BalanceDelta.String() + "|" + e.Timestamp.Format(time.RFC3339Nano)
}

// Account maps an internal account to the owning customer
type Account struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}
