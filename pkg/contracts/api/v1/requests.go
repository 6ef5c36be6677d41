// Package api contains the request contracts of the v1 HTTP API.
// Query structs are bound with middleware.Validator.BindQuery.
package api

// Output formats accepted by view endpoints
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// FormatQuery selects the representation of a view
type FormatQuery struct {
	Format string `query:"format" validate:"omitempty,oneof=json csv"`
}

// FactsQuery filters the fact table; empty fields match everything
type FactsQuery struct {
	Month  string `query:"month" validate:"omitempty,yearmonth"`
	Pair   string `query:"pair" validate:"omitempty,pair"`
	Status string `query:"status" validate:"omitempty,status"`
	User   string `query:"user" validate:"omitempty,max=64"`
	Format string `query:"format" validate:"omitempty,oneof=json csv"`
}

// MonthQuery selects one month of a view
type MonthQuery struct {
	Month  string `query:"month" validate:"required,yearmonth"`
	Format string `query:"format" validate:"omitempty,oneof=json csv"`
}

// PairQuery selects one market pair
type PairQuery struct {
	Pair   string `query:"pair" validate:"required,pair"`
	Format string `query:"format" validate:"omitempty,oneof=json csv"`
}

// StatusQuery selects one lifecycle status
type StatusQuery struct {
	Status string `query:"status" validate:"required,status"`
	Format string `query:"format" validate:"omitempty,oneof=json csv"`
}

// AveragesQuery controls the averages views. IncludeChurn ("true"/"false") counts
// synthetic churn rows as zero-volume trades.
type AveragesQuery struct {
	IncludeChurn string `query:"include_churn" validate:"omitempty,boolean"`
	Format       string `query:"format" validate:"omitempty,oneof=json csv"`
}

// BelowAverageQuery selects the cohort compared against its mean
type BelowAverageQuery struct {
	Month        string `query:"month" validate:"required,yearmonth"`
	Status       string `query:"status" validate:"required,status"`
	IncludeChurn string `query:"include_churn" validate:"omitempty,boolean"`
}

// PipelineRunRequest starts a fact table build. Step restricts the run to one step.
type PipelineRunRequest struct {
	Step       string         `json:"step,omitempty" validate:"omitempty,max=32"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// PipelineRunResponse acknowledges a started build
type PipelineRunResponse struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
}
