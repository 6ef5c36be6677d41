package operations_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/internal/operations"
	"tradecohort/internal/operations/testutil"
	sharedtestutil "tradecohort/internal/shared/testutil"
)

func newTestManager(t *testing.T, hub operations.WebSocketHub, opts ...operations.ManagerOption) *operations.Manager {
	t.Helper()
	logger, _ := sharedtestutil.NewTestLogger(t)
	opts = append([]operations.ManagerOption{operations.WithLogger(logger)}, opts...)
	m := operations.NewManager(hub, nil, nil, opts...)
	t.Cleanup(m.Shutdown)
	return m
}

func TestNewManagerDefaults(t *testing.T) {
	m := newTestManager(t, &testutil.MockWebSocketHub{})

	assert.NotNil(t, m.GetRegistry())
	assert.NotNil(t, m.GetBroadcaster())
	assert.Equal(t, operations.DefaultStageTimeout, m.GetConfig().DefaultTimeout)
}

func TestManagerExecuteSequential(t *testing.T) {
	hub := &testutil.MockWebSocketHub{}
	m := newTestManager(t, hub)

	var order []string
	record := func(id string) func(context.Context, *operations.OperationState) error {
		return func(_ context.Context, state *operations.OperationState) error {
			order = append(order, id)
			state.GetStage(id).SetRows(len(order))
			return nil
		}
	}
	// registered out of order: dependencies decide
	require.NoError(t, m.RegisterStage(&testutil.MockStage{IDValue: "c", NameValue: "C", DependenciesValue: []string{"b"}, ExecuteFunc: record("c")}))
	require.NoError(t, m.RegisterStage(&testutil.MockStage{IDValue: "a", NameValue: "A", ExecuteFunc: record("a")}))
	require.NoError(t, m.RegisterStage(&testutil.MockStage{IDValue: "b", NameValue: "B", DependenciesValue: []string{"a"}, ExecuteFunc: record("b")}))

	resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "op-seq"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, "op-seq", resp.ID)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	require.Len(t, resp.Steps, 3)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, operations.StepStatusCompleted, resp.Steps[id].GetStatus(), id)
	}
	assert.Equal(t, 3, resp.Steps["c"].GetRows())

	assert.True(t, hub.WaitForMessage(operations.EventTypeComplete, time.Second))
	snap, ok := m.GetBroadcaster().GetSnapshot("op-seq")
	require.True(t, ok)
	assert.Equal(t, "completed", snap.Status)
	assert.Equal(t, 100, snap.Progress)
}

func TestManagerGeneratesOperationID(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, m.RegisterStage(testutil.CreateSuccessfulStage("only", "Only")))

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
}

func TestManagerFailureSkipsRemaining(t *testing.T) {
	hub := &testutil.MockWebSocketHub{}
	m := newTestManager(t, hub)

	boom := errors.New("boom")
	first := testutil.CreateSuccessfulStage("first", "First")
	failing := testutil.CreateFailingStage("second", "Second", boom, "first")
	third := testutil.CreateSuccessfulStage("third", "Third", "second")
	for _, s := range []*testutil.MockStage{first, failing, third} {
		require.NoError(t, m.RegisterStage(s))
	}

	resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "op-fail"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, operations.ErrorTypeExecution, operations.GetErrorType(err))
	assert.Equal(t, "second", operations.FailedStep(err))

	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, operations.StepStatusCompleted, resp.Steps["first"].GetStatus())
	assert.Equal(t, operations.StepStatusFailed, resp.Steps["second"].GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["third"].GetStatus())
	assert.Equal(t, 1, failing.GetExecuteCalls(), "failed steps are not retried")
	assert.Zero(t, third.GetExecuteCalls())
}

func TestManagerValidationFailure(t *testing.T) {
	m := newTestManager(t, nil)
	step := &testutil.MockStage{
		IDValue:   "check",
		NameValue: "Check",
		ValidateFunc: func(*operations.OperationState) error {
			return errors.New("input missing")
		},
	}
	require.NoError(t, m.RegisterStage(step))

	_, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.Contains(t, err.Error(), "input missing")
	assert.Zero(t, step.GetExecuteCalls())
}

func TestManagerStageTimeout(t *testing.T) {
	m := newTestManager(t, nil)
	m.GetConfig().SetStageTimeout("slow", 20*time.Millisecond)
	require.NoError(t, m.RegisterStage(testutil.CreateBlockingStage("slow", "Slow")))

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeTimeout, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
}

func TestManagerCancelOperation(t *testing.T) {
	m := newTestManager(t, nil)
	started := make(chan struct{})
	step := &testutil.MockStage{
		IDValue:   "wait",
		NameValue: "Wait",
		ExecuteFunc: func(ctx context.Context, _ *operations.OperationState) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	require.NoError(t, m.RegisterStage(step))
	require.NoError(t, m.RegisterStage(testutil.CreateSuccessfulStage("after", "After", "wait")))

	type result struct {
		resp *operations.OperationResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "op-cancel"})
		done <- result{resp, err}
	}()

	<-started
	require.Len(t, m.ListOperations(), 1)
	_, err := m.GetOperation("op-cancel")
	require.NoError(t, err)
	require.NoError(t, m.CancelOperation("op-cancel"))

	res := <-done
	require.Error(t, res.err)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(res.err))
	assert.Equal(t, operations.OperationStatusCancelled, res.resp.Status)
	assert.Equal(t, operations.StepStatusSkipped, res.resp.Steps["after"].GetStatus())

	assert.ErrorIs(t, m.CancelOperation("op-cancel"), operations.ErrOperationNotFound)
	_, err = m.GetOperation("op-cancel")
	assert.ErrorIs(t, err, operations.ErrOperationNotFound)
}

func TestManagerSingleStep(t *testing.T) {
	m := newTestManager(t, nil)
	var calls atomic.Int32
	count := func(context.Context, *operations.OperationState) error {
		calls.Add(1)
		return nil
	}
	require.NoError(t, m.RegisterStage(&testutil.MockStage{IDValue: "a", NameValue: "A", ExecuteFunc: count}))
	require.NoError(t, m.RegisterStage(&testutil.MockStage{IDValue: "b", NameValue: "B", DependenciesValue: []string{"a"}, ExecuteFunc: count}))

	resp, err := m.Execute(context.Background(), operations.OperationRequest{Step: "b"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, resp.Steps, 1)

	_, err = m.Execute(context.Background(), operations.OperationRequest{Step: "missing"})
	assert.Equal(t, operations.ErrorTypeNotFound, operations.GetErrorType(err))
}

func TestManagerNoSteps(t *testing.T) {
	m := newTestManager(t, nil)
	resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "empty"})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeFatal, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
}

func TestManagerWritesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", operations.ManifestFile)
	m := newTestManager(t, nil, operations.WithManifestPath(path))
	step := &testutil.MockStage{
		IDValue:   "rows",
		NameValue: "Rows",
		ExecuteFunc: func(_ context.Context, state *operations.OperationState) error {
			state.GetStage("rows").SetRows(7)
			state.GetStage("rows").SetMetadata("note", "ok")
			return nil
		},
	}
	require.NoError(t, m.RegisterStage(step))

	_, err := m.Execute(context.Background(), operations.OperationRequest{
		ID:         "op-manifest",
		Parameters: map[string]any{"trigger": "test"},
	})
	require.NoError(t, err)

	manifest, err := operations.LoadRunManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "op-manifest", manifest.OperationID)
	assert.Equal(t, "completed", manifest.Status)
	assert.Equal(t, "test", manifest.Config["trigger"])
	rows, ok := manifest.StageRows("rows")
	assert.True(t, ok)
	assert.Equal(t, 7, rows)
	require.Len(t, manifest.Outputs, 1)
	assert.Equal(t, "manifest", manifest.Outputs[0].Kind)
}

func TestManagerLogsStageErrors(t *testing.T) {
	logger, handler := sharedtestutil.NewTestLogger(t)
	m := operations.NewManager(nil, nil, nil, operations.WithLogger(logger))
	t.Cleanup(m.Shutdown)
	require.NoError(t, m.RegisterStage(testutil.CreateFailingStage("bad", "Bad", nil)))

	_, err := m.Execute(context.Background(), operations.OperationRequest{ID: "op-log"})
	require.Error(t, err)

	assert.True(t, handler.ContainsMessage("stage_error"))
	assert.True(t, handler.ContainsAttr("step", "bad"))
	assert.True(t, handler.ContainsMessage("operation_complete"))
}
