package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/internal/operations"
	"tradecohort/internal/operations/testutil"
)

func TestRegistryRegister(t *testing.T) {
	r := operations.NewRegistry()
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("a", "A")))

	assert.Error(t, r.Register(testutil.CreateSuccessfulStage("a", "again")), "duplicate id")
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(testutil.CreateSuccessfulStage("", "no id")))

	assert.True(t, r.Has("a"))
	assert.Equal(t, 1, r.Count())
	_, err := r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryDependencyOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []*testutil.MockStage
		want    []string
		wantErr bool
	}{
		{
			name: "chain",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("c", "C", "b"),
				testutil.CreateSuccessfulStage("b", "B", "a"),
				testutil.CreateSuccessfulStage("a", "A"),
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "diamond keeps registration order",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("load", "Load"),
				testutil.CreateSuccessfulStage("rates", "Rates", "load"),
				testutil.CreateSuccessfulStage("join", "Join", "load"),
				testutil.CreateSuccessfulStage("value", "Value", "rates", "join"),
			},
			want: []string{"load", "rates", "join", "value"},
		},
		{
			name: "missing dependency",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("a", "A", "ghost"),
			},
			wantErr: true,
		},
		{
			name: "cycle",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("a", "A", "b"),
				testutil.CreateSuccessfulStage("b", "B", "a"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := operations.NewRegistry()
			for _, s := range tt.steps {
				require.NoError(t, r.Register(s))
			}

			ordered, err := r.GetDependencyOrder()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, r.ValidateDependencies())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, idsOf(ordered))
		})
	}
}
