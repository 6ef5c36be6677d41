package http

import (
	"tradecohort/internal/analytics"
	"tradecohort/internal/operations"
	"tradecohort/internal/services"
	"tradecohort/pkg/contracts/domain"
)

// FactReader serves the materialized fact table and the views computed over it
type FactReader interface {
	Query(q analytics.Query) ([]domain.FactRow, error)
	Dimensions() (analytics.Dimensions, error)
	PairVolumeByMonth(pair string) ([]analytics.MonthVolume, error)
	MonthVolumeByPair(month domain.Month) ([]analytics.PairVolume, error)
	StatusVolumeByPair(status domain.Status) ([]analytics.PairVolume, error)
	UserVolumeByPair(userID string) ([]analytics.PairVolume, error)
	HourlyDistribution(month domain.Month) ([]analytics.Bucket, error)
	DailyDistribution(month domain.Month) ([]analytics.Bucket, error)
	ClientPairCounts() ([]analytics.PairCount, error)
	ClientAverages(userID string, opts analytics.AverageOptions) ([]analytics.ClientAverage, error)
	BelowAverage(month domain.Month, status domain.Status, opts analytics.AverageOptions) (analytics.BelowAverage, error)
	CohortSummary() ([]analytics.CohortMonth, error)
}

// PipelineRunner starts fact table builds
type PipelineRunner interface {
	StartRebuild(params map[string]any) (string, error)
	Running() bool
	LastBuild() *services.BuildInfo
}

// OperationTracker exposes the progress of builds
type OperationTracker interface {
	GetAllSnapshots() []*operations.OperationSnapshot
	GetSnapshot(operationID string) (*operations.OperationSnapshot, bool)
}

// OperationCanceller stops a running build
type OperationCanceller interface {
	CancelOperation(id string) error
}

var (
	_ FactReader         = (*services.FactService)(nil)
	_ PipelineRunner     = (*services.FactService)(nil)
	_ OperationTracker   = (*operations.StatusBroadcaster)(nil)
	_ OperationCanceller = (*operations.Manager)(nil)
)
