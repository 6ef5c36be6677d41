package enrichment

import (
	"errors"
	"fmt"

	"tradecohort/pkg/contracts/domain"
)

// ErrEmptyWindow is returned when no month can be derived for classification
var ErrEmptyWindow = errors.New("cohort window is empty")

// Window is an ordered run of consecutive calendar months
type Window struct {
	months []domain.Month
	index  map[domain.Month]int
}

// NewWindow validates that months are non-empty and consecutive
func NewWindow(months []domain.Month) (Window, error) {
	if len(months) == 0 {
		return Window{}, ErrEmptyWindow
	}
	w := Window{
		months: make([]domain.Month, len(months)),
		index:  make(map[domain.Month]int, len(months)),
	}
	for i, m := range months {
		if i > 0 && m != months[i-1].Next() {
			return Window{}, fmt.Errorf("cohort window months must be consecutive: %s follows %s", m, months[i-1])
		}
		w.months[i] = m
		w.index[m] = i
	}
	return w, nil
}

// WindowFromEntries spans the earliest to the latest month observed in rows
func WindowFromEntries(rows []domain.EnrichedEntry) (Window, error) {
	if len(rows) == 0 {
		return Window{}, ErrEmptyWindow
	}
	first, last := rows[0].Month(), rows[0].Month()
	for _, r := range rows[1:] {
		m := r.Month()
		if m.Before(first) {
			first = m
		}
		if last.Before(m) {
			last = m
		}
	}

	var months []domain.Month
	for m := first; !last.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return NewWindow(months)
}

// Months returns a copy of the window months in order
func (w Window) Months() []domain.Month {
	return append([]domain.Month(nil), w.months...)
}

// Len returns the number of months
func (w Window) Len() int {
	return len(w.months)
}

// Index returns the position of m, or -1 when m is outside the window
func (w Window) Index(m domain.Month) int {
	if i, ok := w.index[m]; ok {
		return i
	}
	return -1
}

// Contains reports whether m is part of the window
func (w Window) Contains(m domain.Month) bool {
	return w.Index(m) >= 0
}

// String renders the window as "first..last"
func (w Window) String() string {
	if len(w.months) == 0 {
		return ""
	}
	return w.months[0].String() + ".." + w.months[len(w.months)-1].String()
}
