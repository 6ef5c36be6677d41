package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradecohort/pkg/contracts/domain"
)

// Inputs are the parsed source tables of one batch
type Inputs struct {
	Accounts []domain.Account
	Ledger   []domain.LedgerEntry
	Trades   []domain.Trade
	Rates    []domain.RateTick
}

// Options parameterizes a pipeline run
type Options struct {
	// Window fixes the cohort months; empty derives them from the joined entries
	Window           []domain.Month
	FirstMonthStatus domain.Status
	HourBucket       string
	Logger           *slog.Logger
}

// Result keeps every intermediate table of a run
type Result struct {
	HourlyRates []domain.HourlyRate
	Joined      []domain.EnrichedEntry
	JoinStats   JoinStats
	Valued      []domain.EnrichedEntry
	Valuation   ValuationStats
	Window      Window
	Cohorts     *Cohorts
	Facts       []domain.FactRow
}

// ResolveStage reduces rate ticks to hourly rates using the configured bucketing
func ResolveStage(ticks []domain.RateTick, opts Options) ([]domain.HourlyRate, error) {
	bucket, err := BucketFunc(opts.HourBucket)
	if err != nil {
		return nil, err
	}
	return ResolveHourlyRates(ticks, bucket), nil
}

// ValuateStage values joined rows against hourly rates using the configured bucketing
func ValuateStage(rows []domain.EnrichedEntry, rates []domain.HourlyRate, opts Options) ([]domain.EnrichedEntry, ValuationStats, error) {
	bucket, err := BucketFunc(opts.HourBucket)
	if err != nil {
		return nil, ValuationStats{}, err
	}
	out, stats := Valuate(rows, NewRateBook(rates), bucket)
	return out, stats, nil
}

// ClassifyStage resolves the window and classifies the valued rows. Without a configured
// window and without rows there is nothing to classify: the result is an empty Cohorts
// with a zero Window.
func ClassifyStage(rows []domain.EnrichedEntry, opts Options) (*Cohorts, error) {
	var (
		w   Window
		err error
	)
	switch {
	case len(opts.Window) > 0:
		w, err = NewWindow(opts.Window)
	case len(rows) == 0:
		if _, err := opts.classify().firstMonthStatus(); err != nil {
			return nil, err
		}
		return &Cohorts{Entries: []LabelledEntry{}}, nil
	default:
		w, err = WindowFromEntries(rows)
	}
	if err != nil {
		return nil, err
	}
	return Classify(rows, w, opts.classify())
}

func (o Options) classify() ClassifyOptions {
	return ClassifyOptions{FirstMonthStatus: o.FirstMonthStatus}
}

// Run executes every stage in order. The context is checked between stages.
func Run(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "enrichment")
	start := time.Now()

	res := &Result{}
	var err error

	if res.HourlyRates, err = ResolveStage(in.Rates, opts); err != nil {
		return nil, fmt.Errorf("resolve rates: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Joined, res.JoinStats = JoinLedger(in.Ledger, in.Accounts, in.Trades)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res.Valued, res.Valuation, err = ValuateStage(res.Joined, res.HourlyRates, opts); err != nil {
		return nil, fmt.Errorf("valuate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res.Cohorts, err = ClassifyStage(res.Valued, opts); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	res.Window = res.Cohorts.Window

	res.Facts = Assemble(res.Cohorts)

	logger.InfoContext(ctx, "fact table built",
		slog.Int("hourly_rates", len(res.HourlyRates)),
		slog.Int("joined", len(res.Joined)),
		slog.Int("missing_rate", res.Valuation.MissingRate),
		slog.String("window", res.Window.String()),
		slog.Int("churn_rows", len(res.Cohorts.Churn)),
		slog.Int("facts", len(res.Facts)),
		slog.Duration("duration", time.Since(start)))

	return res, nil
}
