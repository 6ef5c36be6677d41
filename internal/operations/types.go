package operations

import "time"

// Step identifiers
const (
	StepIDLoad      = "load"
	StepIDRates     = "rates"
	StepIDJoin      = "join"
	StepIDValuation = "valuation"
	StepIDCohort    = "cohort"
	StepIDAssemble  = "assemble"
	StepIDExport    = "export"
	StepIDPublish   = "publish"

	// StepFullPipeline selects every registered step
	StepFullPipeline = "full_pipeline"
)

// Step names
const (
	StepNameLoad      = "Load Inputs"
	StepNameRates     = "Resolve Hourly Rates"
	StepNameJoin      = "Join Ledger"
	StepNameValuation = "Value in USD"
	StepNameCohort    = "Classify Cohorts"
	StepNameAssemble  = "Assemble Facts"
	StepNameExport    = "Export Facts"
	StepNamePublish   = "Publish to Sheets"
)

// Context keys for values passed between steps
const (
	ContextKeyDataset     = "dataset"
	ContextKeyHourlyRates = "hourly_rates"
	ContextKeyJoined      = "joined"
	ContextKeyJoinStats   = "join_stats"
	ContextKeyValued      = "valued"
	ContextKeyCohorts     = "cohorts"
	ContextKeyFacts       = "facts"
	ContextKeyManifest    = "manifest"
)

// WebSocket event types
const (
	EventTypeSnapshot = "operation:snapshot"
	EventTypeComplete = "operation:complete"
)

// Default timeouts
const (
	DefaultStageTimeout = 5 * time.Minute
)

// OperationRequest represents a request to execute the pipeline
type OperationRequest struct {
	ID string `json:"id"`
	// Step restricts the run to one step; empty or "full_pipeline" runs every step
	Step       string         `json:"step,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// OperationResponse summarizes a finished run
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`

	// State is the final operation state including step outputs
	State *OperationState `json:"-"`
}
