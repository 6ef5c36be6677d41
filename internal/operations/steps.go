package operations

import (
	"context"
	"fmt"
	"log/slog"

	"tradecohort/internal/dataprocessing"
	"tradecohort/internal/enrichment"
	"tradecohort/internal/exporter"
	"tradecohort/pkg/contracts/domain"
)

// Settings parameterizes the cohort steps
type Settings struct {
	Inputs   dataprocessing.Inputs
	Options  enrichment.Options
	Facts    string // fact table path
	Workbook string // xlsx path, "" disables
	BOM      bool
}

// StepDeps are the collaborators shared by the cohort steps
type StepDeps struct {
	Loader    *dataprocessing.Loader
	CSV       *exporter.CSVWriter
	Workbook  *exporter.WorkbookWriter
	Publisher Publisher // nil disables the publish step
	Logger    *slog.Logger
}

// NewPipelineRegistry registers the cohort steps in execution order
func NewPipelineRegistry(settings Settings, deps StepDeps) (*Registry, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Loader == nil {
		deps.Loader = dataprocessing.NewLoader(deps.Logger)
	}
	if deps.CSV == nil {
		deps.CSV = exporter.NewCSVWriter("", deps.Logger)
	}
	if deps.Workbook == nil {
		deps.Workbook = exporter.NewWorkbookWriter(deps.Logger)
	}
	settings.Options.Logger = deps.Logger

	steps := []Step{
		NewLoadStep(deps.Loader, settings.Inputs),
		NewRatesStep(settings.Options),
		NewJoinStep(),
		NewValuationStep(settings.Options),
		NewCohortStep(settings.Options),
		NewAssembleStep(),
		NewExportStep(deps.CSV, deps.Workbook, settings),
	}
	if deps.Publisher != nil {
		steps = append(steps, NewPublishStep(deps.Publisher))
	}

	registry := NewRegistry()
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, registry.ValidateDependencies()
}

// report records the row count and metadata of the step's output
func report(state *OperationState, stepID string, rows int, metadata map[string]any) {
	s := state.GetStage(stepID)
	if s == nil {
		return
	}
	s.SetRows(rows)
	for k, v := range metadata {
		s.SetMetadata(k, v)
	}
}

// requireContext fails validation when an upstream value is missing
func requireContext(state *OperationState, keys ...string) error {
	for _, key := range keys {
		if _, ok := state.GetContext(key); !ok {
			return fmt.Errorf("missing %s from an earlier step", key)
		}
	}
	return nil
}

// LoadStep reads the four source tables
type LoadStep struct {
	BaseStage
	loader *dataprocessing.Loader
	inputs dataprocessing.Inputs
}

// NewLoadStep creates the load step
func NewLoadStep(loader *dataprocessing.Loader, inputs dataprocessing.Inputs) *LoadStep {
	return &LoadStep{
		BaseStage: NewBaseStage(StepIDLoad, StepNameLoad, nil),
		loader:    loader,
		inputs:    inputs,
	}
}

// Validate checks that every input is located
func (s *LoadStep) Validate(state *OperationState) error {
	if s.inputs.Accounts == "" || s.inputs.Ledger == "" || s.inputs.Trades == "" || s.inputs.Rates == "" {
		return fmt.Errorf("all four input paths are required")
	}
	return nil
}

// Execute loads the dataset
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := s.loader.Load(ctx, s.inputs)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyDataset, ds)
	state.Manifest().SetInputs(ds.Sources)

	total := len(ds.Accounts) + len(ds.Ledger) + len(ds.Trades) + len(ds.Rates)
	report(state, s.ID(), total, map[string]any{
		"accounts": len(ds.Accounts),
		"ledger":   len(ds.Ledger),
		"trades":   len(ds.Trades),
		"rates":    len(ds.Rates),
	})
	return nil
}

// RatesStep collapses rate ticks to one rate per currency and hour
type RatesStep struct {
	BaseStage
	opts enrichment.Options
}

// NewRatesStep creates the rates step
func NewRatesStep(opts enrichment.Options) *RatesStep {
	return &RatesStep{
		BaseStage: NewBaseStage(StepIDRates, StepNameRates, []string{StepIDLoad}),
		opts:      opts,
	}
}

func (s *RatesStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyDataset)
}

func (s *RatesStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := state.Dataset()
	if err != nil {
		return err
	}
	rates, err := enrichment.ResolveStage(ds.Rates, s.opts)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyHourlyRates, rates)
	report(state, s.ID(), len(rates), map[string]any{"ticks": len(ds.Rates)})
	return ctx.Err()
}

// JoinStep joins ledger entries to accounts and trades
type JoinStep struct {
	BaseStage
}

// NewJoinStep creates the join step
func NewJoinStep() *JoinStep {
	return &JoinStep{BaseStage: NewBaseStage(StepIDJoin, StepNameJoin, []string{StepIDLoad})}
}

func (s *JoinStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyDataset)
}

func (s *JoinStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := state.Dataset()
	if err != nil {
		return err
	}
	joined, stats := enrichment.JoinLedger(ds.Ledger, ds.Accounts, ds.Trades)
	state.SetContext(ContextKeyJoined, joined)
	state.SetContext(ContextKeyJoinStats, stats)
	report(state, s.ID(), len(joined), map[string]any{
		"ledger_rows":       stats.LedgerRows,
		"duplicates_pruned": stats.DuplicatesPruned,
		"dropped_no_user":   stats.DroppedNoUser,
		"dropped_no_trade":  stats.DroppedNoTrade,
	})
	return ctx.Err()
}

// ValuationStep converts balance deltas to USD
type ValuationStep struct {
	BaseStage
	opts enrichment.Options
}

// NewValuationStep creates the valuation step
func NewValuationStep(opts enrichment.Options) *ValuationStep {
	return &ValuationStep{
		BaseStage: NewBaseStage(StepIDValuation, StepNameValuation, []string{StepIDRates, StepIDJoin}),
		opts:      opts,
	}
}

func (s *ValuationStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyJoined, ContextKeyHourlyRates)
}

func (s *ValuationStep) Execute(ctx context.Context, state *OperationState) error {
	joined, err := state.Joined()
	if err != nil {
		return err
	}
	rates, err := state.HourlyRates()
	if err != nil {
		return err
	}
	valued, stats, err := enrichment.ValuateStage(joined, rates, s.opts)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyValued, valued)
	report(state, s.ID(), len(valued), map[string]any{
		"valued":       stats.Valued,
		"missing_rate": stats.MissingRate,
	})
	return ctx.Err()
}

// CohortStep labels every customer-month with its lifecycle status
type CohortStep struct {
	BaseStage
	opts enrichment.Options
}

// NewCohortStep creates the cohort step
func NewCohortStep(opts enrichment.Options) *CohortStep {
	return &CohortStep{
		BaseStage: NewBaseStage(StepIDCohort, StepNameCohort, []string{StepIDValuation}),
		opts:      opts,
	}
}

func (s *CohortStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyValued)
}

func (s *CohortStep) Execute(ctx context.Context, state *OperationState) error {
	valued, err := state.Valued()
	if err != nil {
		return err
	}
	cohorts, err := enrichment.ClassifyStage(valued, s.opts)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyCohorts, cohorts)

	window := make([]string, 0, cohorts.Window.Len())
	for _, m := range cohorts.Window.Months() {
		window = append(window, m.String())
	}
	report(state, s.ID(), len(cohorts.Entries), map[string]any{
		"window":     window,
		"churn_rows": len(cohorts.Churn),
	})
	return ctx.Err()
}

// AssembleStep builds the fact table from the labelled entries and churn rows
type AssembleStep struct {
	BaseStage
}

// NewAssembleStep creates the assemble step
func NewAssembleStep() *AssembleStep {
	return &AssembleStep{BaseStage: NewBaseStage(StepIDAssemble, StepNameAssemble, []string{StepIDCohort})}
}

func (s *AssembleStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyCohorts)
}

func (s *AssembleStep) Execute(ctx context.Context, state *OperationState) error {
	cohorts, err := state.Cohorts()
	if err != nil {
		return err
	}
	facts := enrichment.Assemble(cohorts)
	state.SetContext(ContextKeyFacts, facts)

	counts := make(map[string]any)
	for _, r := range facts {
		n, _ := counts[string(r.Status)].(int)
		counts[string(r.Status)] = n + 1
	}
	report(state, s.ID(), len(facts), counts)
	return ctx.Err()
}

// ExportStep writes the fact table as CSV and optionally as a workbook
type ExportStep struct {
	BaseStage
	csv      *exporter.CSVWriter
	workbook *exporter.WorkbookWriter
	settings Settings
}

// NewExportStep creates the export step
func NewExportStep(csv *exporter.CSVWriter, workbook *exporter.WorkbookWriter, settings Settings) *ExportStep {
	return &ExportStep{
		BaseStage: NewBaseStage(StepIDExport, StepNameExport, []string{StepIDAssemble}),
		csv:       csv,
		workbook:  workbook,
		settings:  settings,
	}
}

func (s *ExportStep) Validate(state *OperationState) error {
	if s.settings.Facts == "" {
		return fmt.Errorf("facts output path is required")
	}
	return requireContext(state, ContextKeyFacts)
}

func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	facts, err := state.Facts()
	if err != nil {
		return err
	}
	path, err := s.csv.WriteFactsFile(s.settings.Facts, facts, s.settings.BOM)
	if err != nil {
		return err
	}
	manifest := state.Manifest()
	manifest.AddOutput("csv", path, len(facts))
	metadata := map[string]any{"facts_path": path}

	if s.settings.Workbook != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.workbook.WriteFile(s.settings.Workbook, facts); err != nil {
			return err
		}
		manifest.AddOutput("xlsx", s.settings.Workbook, len(facts))
		metadata["workbook_path"] = s.settings.Workbook
	}
	report(state, s.ID(), len(facts), metadata)
	return nil
}

// PublishStep pushes the fact table to an external sheet
type PublishStep struct {
	BaseStage
	publisher Publisher
}

// NewPublishStep creates the publish step
func NewPublishStep(publisher Publisher) *PublishStep {
	return &PublishStep{
		BaseStage: NewBaseStage(StepIDPublish, StepNamePublish, []string{StepIDAssemble}),
		publisher: publisher,
	}
}

func (s *PublishStep) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyFacts)
}

func (s *PublishStep) Execute(ctx context.Context, state *OperationState) error {
	facts, err := state.Facts()
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, facts); err != nil {
		return err
	}
	state.Manifest().AddOutput("sheets", "", len(facts))
	report(state, s.ID(), len(facts), nil)
	return nil
}

var (
	_ Step = (*LoadStep)(nil)
	_ Step = (*RatesStep)(nil)
	_ Step = (*JoinStep)(nil)
	_ Step = (*ValuationStep)(nil)
	_ Step = (*CohortStep)(nil)
	_ Step = (*AssembleStep)(nil)
	_ Step = (*ExportStep)(nil)
	_ Step = (*PublishStep)(nil)
)

// FactsOf returns the fact table of a finished operation
func FactsOf(resp *OperationResponse) ([]domain.FactRow, error) {
	if resp == nil || resp.State == nil {
		return nil, fmt.Errorf("operation has no state")
	}
	return resp.State.Facts()
}
