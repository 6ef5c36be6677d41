// Package analytics answers read-only questions about a published fact table.
//
// A Facts value wraps an immutable []domain.FactRow. Every view returns a new slice and
// never an error: an empty selection yields an empty slice, and shares are fractions of the
// selection total (zero when the total is zero). Synthetic churn rows only contribute to the
// cohort summary; volume views work on real trades.
//
// Cache memoizes view results per fact table generation.
package analytics
