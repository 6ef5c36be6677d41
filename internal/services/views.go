package services

import (
	"strconv"

	"tradecohort/internal/analytics"
	apperrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

// view memoizes compute over the current fact table under key
func view[T any](s *FactService, key string, compute func(*analytics.Facts) T) (T, error) {
	t := s.table.Load()
	if t == nil {
		var zero T
		return zero, apperrors.ErrFactsNotReady
	}
	return analytics.Cached(t.cache, key, func() T { return compute(t.facts) }), nil
}

// Dimensions lists the values available to filter on
func (s *FactService) Dimensions() (analytics.Dimensions, error) {
	return view(s, analytics.Key("dimensions"), (*analytics.Facts).Dimensions)
}

// PairVolumeByMonth returns one market pair's volume per month
func (s *FactService) PairVolumeByMonth(pair string) ([]analytics.MonthVolume, error) {
	return view(s, analytics.Key("pair_by_month", pair), func(f *analytics.Facts) []analytics.MonthVolume {
		return f.PairVolumeByMonth(pair)
	})
}

// MonthVolumeByPair returns one month's volume per market pair
func (s *FactService) MonthVolumeByPair(month domain.Month) ([]analytics.PairVolume, error) {
	return view(s, analytics.Key("month_by_pair", month.String()), func(f *analytics.Facts) []analytics.PairVolume {
		return f.MonthVolumeByPair(month)
	})
}

// StatusVolumeByPair returns one lifecycle status's volume per market pair
func (s *FactService) StatusVolumeByPair(status domain.Status) ([]analytics.PairVolume, error) {
	return view(s, analytics.Key("status_by_pair", string(status)), func(f *analytics.Facts) []analytics.PairVolume {
		return f.StatusVolumeByPair(status)
	})
}

// UserVolumeByPair returns one customer's volume per market pair
func (s *FactService) UserVolumeByPair(userID string) ([]analytics.PairVolume, error) {
	return view(s, analytics.Key("user_by_pair", userID), func(f *analytics.Facts) []analytics.PairVolume {
		return f.UserVolumeByPair(userID)
	})
}

// HourlyDistribution buckets one month's trades by hour of day
func (s *FactService) HourlyDistribution(month domain.Month) ([]analytics.Bucket, error) {
	return view(s, analytics.Key("hourly", month.String()), func(f *analytics.Facts) []analytics.Bucket {
		return f.HourlyDistribution(month)
	})
}

// DailyDistribution buckets one month's trades by day of month
func (s *FactService) DailyDistribution(month domain.Month) ([]analytics.Bucket, error) {
	return view(s, analytics.Key("daily", month.String()), func(f *analytics.Facts) []analytics.Bucket {
		return f.DailyDistribution(month)
	})
}

// ClientPairCounts groups customers by the number of pairs they traded
func (s *FactService) ClientPairCounts() ([]analytics.PairCount, error) {
	return view(s, analytics.Key("client_pair_counts"), (*analytics.Facts).ClientPairCounts)
}

// ClientAverages compares a customer's average trade with its cohort and month
func (s *FactService) ClientAverages(userID string, opts analytics.AverageOptions) ([]analytics.ClientAverage, error) {
	return view(s, analytics.Key("client_averages", userID, strconv.FormatBool(opts.IncludeChurn)), func(f *analytics.Facts) []analytics.ClientAverage {
		return f.ClientAverages(userID, opts)
	})
}

// BelowAverage reports the share of a cohort trading below its average
func (s *FactService) BelowAverage(month domain.Month, status domain.Status, opts analytics.AverageOptions) (analytics.BelowAverage, error) {
	key := analytics.Key("below_average", month.String(), string(status), strconv.FormatBool(opts.IncludeChurn))
	return view(s, key, func(f *analytics.Facts) analytics.BelowAverage {
		return f.BelowAverage(month, status, opts)
	})
}

// CohortSummary counts customers per status and month
func (s *FactService) CohortSummary() ([]analytics.CohortMonth, error) {
	return view(s, analytics.Key("cohorts"), (*analytics.Facts).CohortSummary)
}

// FactCount returns the number of rows in the current table
func (s *FactService) FactCount() (int, error) {
	return view(s, analytics.Key("count"), (*analytics.Facts).Len)
}
