package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// Facts is an immutable fact table with query helpers
type Facts struct {
	rows []domain.FactRow
}

// New wraps a copy of rows
func New(rows []domain.FactRow) *Facts {
	cp := make([]domain.FactRow, len(rows))
	copy(cp, rows)
	return &Facts{rows: cp}
}

// Len returns the number of rows
func (f *Facts) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

// Rows returns a copy of every row
func (f *Facts) Rows() []domain.FactRow {
	if f == nil {
		return []domain.FactRow{}
	}
	return f.Filter(Query{})
}

// Query selects fact rows; zero fields match everything
type Query struct {
	Month      domain.Month
	MarketPair string
	Status     domain.Status
	UserID     string
}

func (q Query) matches(r domain.FactRow) bool {
	if !q.Month.IsZero() && r.Month != q.Month {
		return false
	}
	if q.MarketPair != "" && r.MarketPair != q.MarketPair {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.UserID != "" && r.UserID != q.UserID {
		return false
	}
	return true
}

// Filter returns the rows matching q in table order
func (f *Facts) Filter(q Query) []domain.FactRow {
	out := make([]domain.FactRow, 0)
	if f == nil {
		return out
	}
	for _, r := range f.rows {
		if q.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// trades yields the real rows accepted by keep
func (f *Facts) trades(keep func(domain.FactRow) bool) []domain.FactRow {
	out := make([]domain.FactRow, 0)
	if f == nil {
		return out
	}
	for _, r := range f.rows {
		if r.Synthetic || (keep != nil && !keep(r)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Dimensions returns the distinct values of every filter column
func (f *Facts) Dimensions() Dimensions {
	return Dimensions{
		MarketPairs: f.MarketPairs(),
		Months:      f.Months(),
		Statuses:    f.Statuses(),
		Users:       f.Users(),
	}
}

// MarketPairs returns the traded pairs, sorted
func (f *Facts) MarketPairs() []string {
	seen := make(map[string]bool)
	for _, r := range f.trades(nil) {
		if r.MarketPair != "" && r.MarketPair != domain.NotApplicable {
			seen[r.MarketPair] = true
		}
	}
	return sortedKeys(seen)
}

// Months returns the months present, in calendar order
func (f *Facts) Months() []domain.Month {
	out := make([]domain.Month, 0)
	if f == nil {
		return out
	}
	seen := make(map[domain.Month]bool)
	for _, r := range f.rows {
		if !seen[r.Month] {
			seen[r.Month] = true
			out = append(out, r.Month)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Statuses returns the statuses present, in display order
func (f *Facts) Statuses() []domain.Status {
	out := make([]domain.Status, 0)
	if f == nil {
		return out
	}
	seen := make(map[domain.Status]bool)
	for _, r := range f.rows {
		seen[r.Status] = true
	}
	for _, s := range append(domain.Statuses(), domain.StatusUnknown) {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// Users returns the customer ids present, sorted
func (f *Facts) Users() []string {
	seen := make(map[string]bool)
	if f != nil {
		for _, r := range f.rows {
			seen[r.UserID] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// share returns part/total as a float, zero when total is zero
func share(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).InexactFloat64()
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// mean averages values, zero for an empty slice
func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}
