package dataprocessing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

// Table names used in diagnostics
const (
	TableAccounts = "accounts"
	TableLedger   = "ledger"
	TableTrades   = "trades"
	TableRates    = "rates"
)

// Required columns per input table
var (
	AccountColumns = []string{"id", "user_id"}
	LedgerColumns  = []string{"account_id", "foreign_id", "currency", "balance_delta", "timestamp_at"}
	TradeColumns   = []string{"id", "base_currency", "counter_currency"}
	RateColumns    = []string{"currency", "reference_at", "average_price_per_usd"}
)

// timestampLayouts are tried in order; zone-aware layouts come first
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp and normalizes it to its wall-clock reading
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.NormalizeTime(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// normalizeID undoes float rendering of integer identifiers ("123.0" -> "123"),
// which spreadsheet tools produce for id columns that contain blanks
func normalizeID(raw string) string {
	if head, ok := strings.CutSuffix(raw, ".0"); ok && head != "" {
		for _, r := range head {
			if r < '0' || r > '9' {
				return raw
			}
		}
		return head
	}
	return raw
}

type rowReader struct {
	t   *Table
	i   int
	err error
}

func (r *rowReader) required(column string) string {
	v := r.t.Get(r.i, column)
	if v == "" && r.err == nil {
		r.err = apperrors.NewMalformedValueError(r.t.Name, column, r.t.Line(r.i), v, fmt.Errorf("required value is empty"))
	}
	return v
}

func (r *rowReader) id(column string) string {
	return normalizeID(r.required(column))
}

func (r *rowReader) decimal(column string) decimal.Decimal {
	v := r.required(column)
	if r.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.err = apperrors.NewMalformedValueError(r.t.Name, column, r.t.Line(r.i), v, err)
	}
	return d
}

func (r *rowReader) timestamp(column string) time.Time {
	v := r.required(column)
	if r.err != nil {
		return time.Time{}
	}
	ts, err := ParseTimestamp(v)
	if err != nil {
		r.err = apperrors.NewMalformedValueError(r.t.Name, column, r.t.Line(r.i), v, err)
	}
	return ts
}

// ParseAccounts converts the accounts table. An empty user_id leaves the account unowned;
// its ledger entries are dropped by the join.
func ParseAccounts(t *Table) ([]domain.Account, error) {
	if err := t.Require(AccountColumns...); err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, t.Len())
	for i := range t.Rows {
		r := &rowReader{t: t, i: i}
		a := domain.Account{ID: r.id("id"), UserID: normalizeID(t.Get(i, "user_id"))}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseLedger converts the ledger table. An empty foreign_id is kept as a null reference.
func ParseLedger(t *Table) ([]domain.LedgerEntry, error) {
	if err := t.Require(LedgerColumns...); err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, t.Len())
	for i := range t.Rows {
		r := &rowReader{t: t, i: i}
		e := domain.LedgerEntry{
			ID:           normalizeID(t.Get(i, "id")),
			Line:         t.Line(i),
			AccountID:    r.id("account_id"),
			ForeignID:    normalizeID(t.Get(i, "foreign_id")),
			Currency:     r.required("currency"),
			BalanceDelta: r.decimal("balance_delta"),
			Timestamp:    r.timestamp("timestamp_at"),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, e)
	}
	return out, nil
}

// ParseTrades converts the trades table
func ParseTrades(t *Table) ([]domain.Trade, error) {
	if err := t.Require(TradeColumns...); err != nil {
		return nil, err
	}
	out := make([]domain.Trade, 0, t.Len())
	for i := range t.Rows {
		r := &rowReader{t: t, i: i}
		tr := domain.Trade{
			ID:              r.id("id"),
			BaseCurrency:    r.required("base_currency"),
			CounterCurrency: r.required("counter_currency"),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, tr)
	}
	return out, nil
}

// ParseRates converts the reference rate table
func ParseRates(t *Table) ([]domain.RateTick, error) {
	if err := t.Require(RateColumns...); err != nil {
		return nil, err
	}
	out := make([]domain.RateTick, 0, t.Len())
	for i := range t.Rows {
		r := &rowReader{t: t, i: i}
		tick := domain.RateTick{
			Currency:    r.required("currency"),
			ReferenceAt: r.timestamp("reference_at"),
			PricePerUSD: r.decimal("average_price_per_usd"),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, tick)
	}
	return out, nil
}
