package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tradecohort/internal/errors"
)

func writeInputs(t *testing.T, files map[string]string) Inputs {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return Inputs{
		Accounts: filepath.Join(dir, "accounts.csv"),
		Ledger:   filepath.Join(dir, "ledger_entries.csv"),
		Trades:   filepath.Join(dir, "trades.csv"),
		Rates:    filepath.Join(dir, "rates.csv"),
	}
}

var validFiles = map[string]string{
	"accounts.csv":       "id,user_id\n1,A\n",
	"ledger_entries.csv": "account_id,foreign_id,currency,balance_delta,timestamp_at\n1,9,XBT,0.1,2020-01-05 10:00:00\n",
	"trades.csv":         "id,base_currency,counter_currency\n9,XBT,ZAR\n",
	"rates.csv":          "currency,reference_at,average_price_per_usd\nXBT,2020-01-05 10:10:00,7000\n",
}

func TestLoaderLoad(t *testing.T) {
	in := writeInputs(t, validFiles)

	ds, err := NewLoader(nil).Load(context.Background(), in)
	require.NoError(t, err)

	assert.Len(t, ds.Accounts, 1)
	assert.Len(t, ds.Ledger, 1)
	assert.Len(t, ds.Trades, 1)
	assert.Len(t, ds.Rates, 1)

	require.Len(t, ds.Sources, 4)
	assert.Equal(t, TableAccounts, ds.Sources[0].Table)
	assert.Equal(t, TableRates, ds.Sources[3].Table)
	assert.Equal(t, Digest([]byte(validFiles["ledger_entries.csv"])), ds.Sources[1].Digest)
	assert.Len(t, ds.Sources[1].Digest, 64)
}

func TestLoaderFailsOnMissingFile(t *testing.T) {
	files := map[string]string{}
	for k, v := range validFiles {
		files[k] = v
	}
	delete(files, "trades.csv")

	_, err := NewLoader(nil).Load(context.Background(), writeInputs(t, files))
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoaderFailsOnSchema(t *testing.T) {
	files := map[string]string{}
	for k, v := range validFiles {
		files[k] = v
	}
	files["rates.csv"] = "currency,reference_at\nXBT,2020-01-05\n"

	_, err := NewLoader(nil).Load(context.Background(), writeInputs(t, files))
	var schemaErr *apperrors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "average_price_per_usd", schemaErr.Column)
}

func TestLoaderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(nil).Load(ctx, writeInputs(t, validFiles))
	assert.ErrorIs(t, err, context.Canceled)
}
