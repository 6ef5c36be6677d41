package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradecohort/pkg/contracts/domain"
)

// PairVolumeByMonth returns the monthly volume of one pair; shares are of the pair's total
func (f *Facts) PairVolumeByMonth(pair string) []MonthVolume {
	byMonth := make(map[domain.Month]*MonthVolume)
	total := decimal.Zero
	for _, r := range f.trades(func(r domain.FactRow) bool { return r.MarketPair == pair }) {
		mv, ok := byMonth[r.Month]
		if !ok {
			mv = &MonthVolume{Month: r.Month, USDVolume: decimal.Zero}
			byMonth[r.Month] = mv
		}
		mv.Trades++
		mv.USDVolume = mv.USDVolume.Add(r.Volume())
		total = total.Add(r.Volume())
	}

	out := make([]MonthVolume, 0, len(byMonth))
	for _, mv := range byMonth {
		mv.Share = share(mv.USDVolume, total)
		out = append(out, *mv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// MonthVolumeByPair returns the volume per pair traded in month
func (f *Facts) MonthVolumeByPair(month domain.Month) []PairVolume {
	return pairVolumes(f.trades(func(r domain.FactRow) bool { return r.Month == month }))
}

// StatusVolumeByPair returns the volume per pair traded by customers holding status
func (f *Facts) StatusVolumeByPair(status domain.Status) []PairVolume {
	return pairVolumes(f.trades(func(r domain.FactRow) bool { return r.Status == status }))
}

// UserVolumeByPair returns the volume per pair traded by one customer
func (f *Facts) UserVolumeByPair(userID string) []PairVolume {
	return pairVolumes(f.trades(func(r domain.FactRow) bool { return r.UserID == userID }))
}

func pairVolumes(rows []domain.FactRow) []PairVolume {
	byPair := make(map[string]*PairVolume)
	total := decimal.Zero
	for _, r := range rows {
		pv, ok := byPair[r.MarketPair]
		if !ok {
			pv = &PairVolume{MarketPair: r.MarketPair, USDVolume: decimal.Zero}
			byPair[r.MarketPair] = pv
		}
		pv.Trades++
		pv.USDVolume = pv.USDVolume.Add(r.Volume())
		total = total.Add(r.Volume())
	}

	out := make([]PairVolume, 0, len(byPair))
	for _, pv := range byPair {
		pv.Share = share(pv.USDVolume, total)
		out = append(out, *pv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketPair < out[j].MarketPair })
	return out
}

// HourlyDistribution buckets the trades of month by hour of day
func (f *Facts) HourlyDistribution(month domain.Month) []Bucket {
	return distribution(f.trades(func(r domain.FactRow) bool { return r.Month == month }), domain.FactRow.Hour)
}

// DailyDistribution buckets the trades of month by day of month
func (f *Facts) DailyDistribution(month domain.Month) []Bucket {
	return distribution(f.trades(func(r domain.FactRow) bool { return r.Month == month }), domain.FactRow.Day)
}

func distribution(rows []domain.FactRow, key func(domain.FactRow) int) []Bucket {
	byKey := make(map[int]*Bucket)
	total := decimal.Zero
	for _, r := range rows {
		k := key(r)
		b, ok := byKey[k]
		if !ok {
			b = &Bucket{Bucket: k, USDVolume: decimal.Zero}
			byKey[k] = b
		}
		b.Trades++
		b.USDVolume = b.USDVolume.Add(r.Volume())
		total = total.Add(r.Volume())
	}

	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		b.TradeShare = ratio(b.Trades, len(rows))
		b.USDShare = share(b.USDVolume, total)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out
}

// ClientPairCounts groups customers by how many distinct pairs they traded
func (f *Facts) ClientPairCounts() []PairCount {
	pairs := make(map[string]map[string]bool)
	for _, r := range f.trades(nil) {
		if pairs[r.UserID] == nil {
			pairs[r.UserID] = make(map[string]bool)
		}
		pairs[r.UserID][r.MarketPair] = true
	}

	byCount := make(map[int]int)
	for _, set := range pairs {
		byCount[len(set)]++
	}
	out := make([]PairCount, 0, len(byCount))
	for n, customers := range byCount {
		out = append(out, PairCount{Pairs: n, Customers: customers, Share: ratio(customers, len(pairs))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pairs < out[j].Pairs })
	return out
}

type cohortKey struct {
	month  domain.Month
	status domain.Status
}

// AverageOptions selects the rows behind the averages views
type AverageOptions struct {
	// IncludeChurn counts every synthetic churn row as a zero-volume trade of its
	// customer, so churned customers form a cohort and pull the monthly mean down.
	IncludeChurn bool
}

// averages holds per-customer and per-month means of valued trades
type averages struct {
	client  map[string]map[cohortKey]decimal.Decimal
	cohort  map[cohortKey][]decimal.Decimal
	monthly map[domain.Month]decimal.Decimal
}

func (f *Facts) averages(opts AverageOptions) averages {
	volumes := make(map[string]map[cohortKey][]decimal.Decimal)
	byMonth := make(map[domain.Month][]decimal.Decimal)
	var rows []domain.FactRow
	if f != nil {
		rows = f.rows
	}
	for _, r := range rows {
		if !r.USDVolume.Valid || (r.Synthetic && !opts.IncludeChurn) {
			continue
		}
		k := cohortKey{month: r.Month, status: r.Status}
		if volumes[r.UserID] == nil {
			volumes[r.UserID] = make(map[cohortKey][]decimal.Decimal)
		}
		volumes[r.UserID][k] = append(volumes[r.UserID][k], r.USDVolume.Decimal)
		byMonth[r.Month] = append(byMonth[r.Month], r.USDVolume.Decimal)
	}

	avg := averages{
		client:  make(map[string]map[cohortKey]decimal.Decimal, len(volumes)),
		cohort:  make(map[cohortKey][]decimal.Decimal),
		monthly: make(map[domain.Month]decimal.Decimal, len(byMonth)),
	}
	for user, keys := range volumes {
		avg.client[user] = make(map[cohortKey]decimal.Decimal, len(keys))
		for k, vs := range keys {
			m := mean(vs)
			avg.client[user][k] = m
			avg.cohort[k] = append(avg.cohort[k], m)
		}
	}
	for month, vs := range byMonth {
		avg.monthly[month] = mean(vs)
	}
	return avg
}

// ClientAverages compares a customer's mean trade volume per month with the mean of
// their status cohort and of the month
func (f *Facts) ClientAverages(userID string, opts AverageOptions) []ClientAverage {
	avg := f.averages(opts)
	out := make([]ClientAverage, 0, len(avg.client[userID]))
	for k, m := range avg.client[userID] {
		out = append(out, ClientAverage{
			Month:          k.month,
			Status:         k.status,
			ClientAverage:  m,
			StatusAverage:  mean(avg.cohort[k]),
			MonthlyAverage: avg.monthly[k.month],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// BelowAverage counts the customers of (month, status) whose mean trade volume is below
// the cohort mean
func (f *Facts) BelowAverage(month domain.Month, status domain.Status, opts AverageOptions) BelowAverage {
	res := BelowAverage{Month: month, Status: status, Mean: decimal.Zero}
	clients := f.averages(opts).cohort[cohortKey{month: month, status: status}]
	if len(clients) == 0 {
		return res
	}
	res.Mean = mean(clients)
	res.Clients = len(clients)
	for _, m := range clients {
		if m.LessThan(res.Mean) {
			res.Below++
		}
	}
	res.Share = ratio(res.Below, res.Clients)
	return res
}

// CohortSummary counts distinct customers per status for every month. Active counts the
// customers with at least one real trade; churn rate is churned over active.
func (f *Facts) CohortSummary() []CohortMonth {
	type sets struct {
		active   map[string]bool
		byStatus map[domain.Status]map[string]bool
	}
	months := make(map[domain.Month]*sets)
	if f != nil {
		for _, r := range f.rows {
			s, ok := months[r.Month]
			if !ok {
				s = &sets{active: make(map[string]bool), byStatus: make(map[domain.Status]map[string]bool)}
				months[r.Month] = s
			}
			if !r.Synthetic {
				s.active[r.UserID] = true
			}
			if s.byStatus[r.Status] == nil {
				s.byStatus[r.Status] = make(map[string]bool)
			}
			s.byStatus[r.Status][r.UserID] = true
		}
	}

	out := make([]CohortMonth, 0, len(months))
	for m, s := range months {
		cm := CohortMonth{
			Month:       m,
			Active:      len(s.active),
			New:         len(s.byStatus[domain.StatusNew]),
			Returning:   len(s.byStatus[domain.StatusReturning]),
			Reactivated: len(s.byStatus[domain.StatusReactivated]),
			Churned:     len(s.byStatus[domain.StatusChurned]),
			Unknown:     len(s.byStatus[domain.StatusUnknown]),
		}
		cm.ChurnRate = ratio(cm.Churned, cm.Active)
		out = append(out, cm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
