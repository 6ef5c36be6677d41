package enrichment

import (
	"fmt"
	"sort"
	"time"

	"tradecohort/pkg/contracts/domain"
)

// ClassifyOptions controls the lifecycle classification
type ClassifyOptions struct {
	// FirstMonthStatus labels every customer active in the first window month.
	// Only New and Returning are meaningful; empty means Returning.
	FirstMonthStatus domain.Status
}

func (o ClassifyOptions) firstMonthStatus() (domain.Status, error) {
	switch o.FirstMonthStatus {
	case "":
		return domain.StatusReturning, nil
	case domain.StatusReturning, domain.StatusNew:
		return o.FirstMonthStatus, nil
	}
	return "", fmt.Errorf("first month status must be %s or %s, got %q",
		domain.StatusReturning, domain.StatusNew, o.FirstMonthStatus)
}

// UserSet is a set of customer ids
type UserSet map[string]struct{}

// Has reports membership
func (s UserSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order
func (s UserSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MonthCohort holds the lifecycle sets of one window month
type MonthCohort struct {
	Month       domain.Month
	Active      UserSet
	New         UserSet
	Returning   UserSet
	Reactivated UserSet
	Churned     UserSet
}

// LabelledEntry is an enriched entry carrying its owner's status for the entry's month
type LabelledEntry struct {
	domain.EnrichedEntry
	Status domain.Status
}

// Cohorts is the output of Classify
type Cohorts struct {
	Window   Window
	Months   []MonthCohort
	Statuses []domain.CustomerMonthStatus
	Entries  []LabelledEntry
	Churn    []domain.FactRow
}

// StatusOf returns the status of user in month, StatusUnknown when none was assigned
func (c *Cohorts) StatusOf(userID string, month domain.Month) domain.Status {
	i := c.Window.Index(month)
	if i < 0 {
		return domain.StatusUnknown
	}
	return c.Months[i].statusOf(userID)
}

// statusOf applies the labels in overwrite order New, Returning, Reactivated
func (mc MonthCohort) statusOf(userID string) domain.Status {
	status := domain.StatusUnknown
	if mc.New.Has(userID) {
		status = domain.StatusNew
	}
	if mc.Returning.Has(userID) {
		status = domain.StatusReturning
	}
	if mc.Reactivated.Has(userID) {
		status = domain.StatusReactivated
	}
	if mc.Churned.Has(userID) {
		status = domain.StatusChurned
	}
	return status
}

// Classify labels every customer per window month from the month-over-month changes of
// the active customer sets, and emits one zero-volume churn row per churned customer.
//
// For month i > 0, with A(i) the active set:
//
//	Churned(i)     = A(i-1) - A(i)
//	New(i)         = A(i) - (A(0) ∪ ... ∪ A(i-1))
//	Returning(i)   = A(i) ∩ A(i-1)
//	Reactivated(i) = A(i) ∩ Churned(i-1)
//
// Everyone active in month 0 gets the first-month status. Rows outside the window are
// labelled Unknown.
func Classify(rows []domain.EnrichedEntry, w Window, opts ClassifyOptions) (*Cohorts, error) {
	first, err := opts.firstMonthStatus()
	if err != nil {
		return nil, err
	}
	if w.Len() == 0 {
		return nil, ErrEmptyWindow
	}

	n := w.Len()
	months := make([]MonthCohort, n)
	latest := make([]time.Time, n)
	for i, m := range w.months {
		months[i] = MonthCohort{
			Month:       m,
			Active:      UserSet{},
			New:         UserSet{},
			Returning:   UserSet{},
			Reactivated: UserSet{},
			Churned:     UserSet{},
		}
	}

	stamps := make(map[string]time.Time)
	for _, r := range rows {
		if at, ok := stamps[r.TradeID]; !ok || r.Timestamp.Before(at) {
			stamps[r.TradeID] = r.Timestamp
		}
		if i := w.Index(r.Month()); i >= 0 {
			months[i].Active[r.UserID] = struct{}{}
		}
	}
	// Assemble stamps each trade's fact row with its earliest leg; churn rows take the
	// latest of those stamps in their month.
	for _, at := range stamps {
		if i := w.Index(domain.MonthOf(at)); i >= 0 && at.After(latest[i]) {
			latest[i] = at
		}
	}

	for id := range months[0].Active {
		if first == domain.StatusNew {
			months[0].New[id] = struct{}{}
		} else {
			months[0].Returning[id] = struct{}{}
		}
	}

	seen := UserSet{}
	for id := range months[0].Active {
		seen[id] = struct{}{}
	}
	for i := 1; i < n; i++ {
		cur, prev := &months[i], months[i-1]
		for id := range prev.Active {
			if !cur.Active.Has(id) {
				cur.Churned[id] = struct{}{}
			}
		}
		for id := range cur.Active {
			if !seen.Has(id) {
				cur.New[id] = struct{}{}
			}
			if prev.Active.Has(id) {
				cur.Returning[id] = struct{}{}
			}
			if prev.Churned.Has(id) {
				cur.Reactivated[id] = struct{}{}
			}
		}
		for id := range cur.Active {
			seen[id] = struct{}{}
		}
	}

	c := &Cohorts{Window: w, Months: months}

	for i := range months {
		mc := months[i]
		for _, id := range mc.Active.Sorted() {
			c.Statuses = append(c.Statuses, domain.CustomerMonthStatus{UserID: id, Month: mc.Month, Status: mc.statusOf(id)})
		}
		churnAt := latest[i]
		if churnAt.IsZero() {
			churnAt = mc.Month.Start()
		}
		for _, id := range mc.Churned.Sorted() {
			c.Statuses = append(c.Statuses, domain.CustomerMonthStatus{UserID: id, Month: mc.Month, Status: domain.StatusChurned})
			c.Churn = append(c.Churn, domain.NewChurnRow(id, mc.Month, churnAt))
		}
	}

	c.Entries = make([]LabelledEntry, 0, len(rows))
	for _, r := range rows {
		c.Entries = append(c.Entries, LabelledEntry{EnrichedEntry: r, Status: c.StatusOf(r.UserID, r.Month())})
	}

	return c, nil
}

// Counts returns the number of customers per status for each window month
func (c *Cohorts) Counts() map[domain.Month]map[domain.Status]int {
	out := make(map[domain.Month]map[domain.Status]int, len(c.Months))
	for _, s := range c.Statuses {
		if out[s.Month] == nil {
			out[s.Month] = make(map[domain.Status]int)
		}
		out[s.Month][s.Status]++
	}
	return out
}
