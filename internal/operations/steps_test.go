package operations_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/internal/config"
	"tradecohort/internal/dataprocessing"
	"tradecohort/internal/enrichment"
	"tradecohort/internal/exporter"
	"tradecohort/internal/operations"
	"tradecohort/internal/operations/testutil"
	sharedtestutil "tradecohort/internal/shared/testutil"
	"tradecohort/pkg/contracts/domain"
)

func fixtureSettings(t *testing.T) (operations.Settings, sharedtestutil.CohortInputs) {
	t.Helper()
	in := sharedtestutil.WriteCohortInputs(t)
	out := t.TempDir()
	return operations.Settings{
		Inputs: dataprocessing.Inputs{
			Accounts: in.Accounts,
			Ledger:   in.Ledger,
			Trades:   in.Trades,
			Rates:    in.Rates,
		},
		Facts:    filepath.Join(out, "facts.csv"),
		Workbook: filepath.Join(out, "facts.xlsx"),
	}, in
}

func TestPipelineRegistryOrder(t *testing.T) {
	settings, _ := fixtureSettings(t)

	registry, err := operations.NewPipelineRegistry(settings, operations.StepDeps{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		operations.StepIDLoad, operations.StepIDRates, operations.StepIDJoin, operations.StepIDValuation,
		operations.StepIDCohort, operations.StepIDAssemble, operations.StepIDExport,
	}, registry.ListIDs())

	withPublish, err := operations.NewPipelineRegistry(settings, operations.StepDeps{Publisher: &testutil.MockPublisher{}})
	require.NoError(t, err)
	assert.True(t, withPublish.Has(operations.StepIDPublish))
	assert.Equal(t, []string{operations.StepIDExport, operations.StepIDPublish},
		idsOf(withPublish.GetDependents(operations.StepIDAssemble)))
}

func idsOf(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestPipelineEndToEnd(t *testing.T) {
	settings, _ := fixtureSettings(t)
	logger, _ := sharedtestutil.NewTestLogger(t)
	publisher := &testutil.MockPublisher{}

	registry, err := operations.NewPipelineRegistry(settings, operations.StepDeps{Publisher: publisher, Logger: logger})
	require.NoError(t, err)
	manifestPath := filepath.Join(filepath.Dir(settings.Facts), operations.ManifestFile)
	hub := &testutil.MockWebSocketHub{}
	m := operations.NewManager(hub, registry, nil, operations.WithLogger(logger), operations.WithManifestPath(manifestPath))
	t.Cleanup(m.Shutdown)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "cohort-run"})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)

	facts, err := operations.FactsOf(resp)
	require.NoError(t, err)
	require.Len(t, facts, sharedtestutil.CohortFixtureTrades+2)

	counts := map[domain.Status]int{}
	volume := decimal.RequireFromString(sharedtestutil.CohortFixtureVolume)
	for _, r := range facts {
		counts[r.Status]++
		if r.Synthetic {
			continue
		}
		require.True(t, r.USDVolume.Valid, r.TradeID)
		assert.True(t, volume.Equal(r.USDVolume.Decimal), r.USDVolume.Decimal.String())
	}
	assert.Equal(t, map[domain.Status]int{
		domain.StatusReturning: 7,
		domain.StatusNew:       2,
		domain.StatusChurned:   2,
	}, counts)

	assert.Equal(t, 2, resp.Steps[operations.StepIDCohort].MetadataCopy()["churn_rows"])
	assert.Equal(t, len(facts), resp.Steps[operations.StepIDExport].GetRows())
	assert.Equal(t, 1, publisher.Calls())

	// the exported table reads back to the same rows
	f, err := os.Open(settings.Facts)
	require.NoError(t, err)
	defer f.Close()
	read, err := exporter.ReadFacts(f)
	require.NoError(t, err)
	assert.Len(t, read, len(facts))
	assert.FileExists(t, settings.Workbook)

	manifest, err := operations.LoadRunManifest(manifestPath)
	require.NoError(t, err)
	assert.Len(t, manifest.Inputs, 4)
	kinds := make([]string, 0, len(manifest.Outputs))
	for _, o := range manifest.Outputs {
		kinds = append(kinds, o.Kind)
	}
	assert.Equal(t, []string{"csv", "xlsx", "sheets", "manifest"}, kinds)
	for _, id := range registry.ListIDs() {
		assert.True(t, manifest.IsStageCompleted(id), id)
	}
}

func TestPipelineMissingInputFailsLoad(t *testing.T) {
	settings, in := fixtureSettings(t)
	require.NoError(t, os.Remove(in.Rates))

	registry, err := operations.NewPipelineRegistry(settings, operations.StepDeps{})
	require.NoError(t, err)
	m := operations.NewManager(nil, registry, nil)
	t.Cleanup(m.Shutdown)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.StepIDLoad, operations.FailedStep(err))
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StepIDExport].GetStatus())
	assert.NoFileExists(t, settings.Facts)
}

func TestPipelineWithoutTradeEntriesExportsEmptyTable(t *testing.T) {
	settings, in := fixtureSettings(t)
	ledger := "id,account_id,foreign_id,currency,balance_delta,timestamp_at\n" +
		"1,1,,XBT,1,2020-01-10 12:00:00\n" +
		"2,2,,ZAR,-50,2020-02-01 08:00:00\n"
	require.NoError(t, os.WriteFile(in.Ledger, []byte(ledger), 0o600))

	registry, err := operations.NewPipelineRegistry(settings, operations.StepDeps{})
	require.NoError(t, err)
	m := operations.NewManager(nil, registry, nil)
	t.Cleanup(m.Shutdown)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "deposits-only"})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)

	facts, err := operations.FactsOf(resp)
	require.NoError(t, err)
	assert.Empty(t, facts)
	assert.Equal(t, 0, resp.Steps[operations.StepIDCohort].MetadataCopy()["churn_rows"])

	data, err := os.ReadFile(settings.Facts)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(domain.FactColumns, ",")+"\n", string(data))
}

func TestPipelinePublishFailure(t *testing.T) {
	settings, _ := fixtureSettings(t)
	settings.Workbook = ""
	publisher := &testutil.MockPublisher{Err: errors.New("quota exceeded")}

	registry, err := operations.NewPipelineRegistry(settings, operations.StepDeps{Publisher: publisher})
	require.NoError(t, err)
	m := operations.NewManager(nil, registry, nil)
	t.Cleanup(m.Shutdown)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.StepIDPublish, operations.FailedStep(err))
	assert.Equal(t, operations.StepStatusCompleted, resp.Steps[operations.StepIDExport].GetStatus())
	assert.FileExists(t, settings.Facts)
}

func TestStepValidationRequiresUpstream(t *testing.T) {
	state := operations.NewOperationState("v")
	tests := []struct {
		name string
		step operations.Step
	}{
		{"rates", operations.NewRatesStep(enrichmentOptions())},
		{"join", operations.NewJoinStep()},
		{"valuation", operations.NewValuationStep(enrichmentOptions())},
		{"cohort", operations.NewCohortStep(enrichmentOptions())},
		{"assemble", operations.NewAssembleStep()},
		{"publish", operations.NewPublishStep(&testutil.MockPublisher{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.step.Validate(state))
		})
	}

	load := operations.NewLoadStep(dataprocessing.NewLoader(nil), dataprocessing.Inputs{Accounts: "a.csv"})
	assert.Error(t, load.Validate(state))
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Inputs.Dir = "in"
	cfg.Output.Dir = "out"
	cfg.Output.Workbook = "facts.xlsx"
	cfg.Cohort.Window = []string{"2020-01", "2020-02"}
	cfg.Cohort.FirstMonthStatus = "New"

	settings, err := operations.SettingsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("in", "rates.csv"), settings.Inputs.Rates)
	assert.Equal(t, filepath.Join("out", "final_clean_df.csv"), settings.Facts)
	assert.Equal(t, filepath.Join("out", "facts.xlsx"), settings.Workbook)
	assert.Len(t, settings.Options.Window, 2)
	assert.Equal(t, domain.StatusNew, settings.Options.FirstMonthStatus)
	assert.Equal(t, filepath.Join("out", operations.ManifestFile), operations.ManifestPath(cfg))

	cfg.Cohort.Window = []string{"2020-01", "2020-03"}
	_, err = operations.SettingsFromConfig(cfg)
	assert.Error(t, err)
}

func enrichmentOptions() enrichment.Options {
	return enrichment.Options{}
}
