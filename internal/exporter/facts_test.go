package exporter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

var feb = domain.Month{Year: 2020, Month: time.February}

func sampleRows() []domain.FactRow {
	at := time.Date(2020, time.February, 3, 9, 15, 30, 0, time.UTC)
	return []domain.FactRow{
		{
			Timestamp:  at,
			Month:      feb,
			UserID:     "B",
			Status:     domain.StatusReturning,
			MarketPair: "XBTZAR",
			USDVolume:  decimal.NewNullDecimal(decimal.RequireFromString("77.5")),
		},
		{
			Timestamp:  at.Add(time.Hour),
			Month:      feb,
			UserID:     "C",
			Status:     domain.StatusNew,
			MarketPair: "ETHZAR",
		},
		domain.NewChurnRow("A", feb, feb.Start()),
	}
}

func TestWriteFacts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFacts(&buf, sampleRows()))

	want := strings.Join([]string{
		"timestamp,month,user_id,status,market_pair,usd_volume",
		"2020-02-03 09:15:30,2020-02,B,Returning,XBTZAR,77.5",
		"2020-02-03 10:15:30,2020-02,C,New,ETHZAR,",
		"-,2020-02,A,Churned,-,0",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestReadFactsRoundTrip(t *testing.T) {
	rows := sampleRows()
	var buf bytes.Buffer
	require.NoError(t, WriteFacts(&buf, rows))

	got, err := ReadFacts(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.True(t, rows[i].Timestamp.Equal(got[i].Timestamp), "row %d timestamp", i)
		assert.Equal(t, rows[i].Month, got[i].Month)
		assert.Equal(t, rows[i].UserID, got[i].UserID)
		assert.Equal(t, rows[i].Status, got[i].Status)
		assert.Equal(t, rows[i].MarketPair, got[i].MarketPair)
		assert.Equal(t, rows[i].Synthetic, got[i].Synthetic)
		assert.Equal(t, rows[i].USDVolume.Valid, got[i].USDVolume.Valid)
		assert.True(t, rows[i].USDVolume.Decimal.Equal(got[i].USDVolume.Decimal))
	}
}

func TestReadFactsErrors(t *testing.T) {
	header := "timestamp,month,user_id,status,market_pair,usd_volume\n"

	tests := []struct {
		name   string
		input  string
		column string
	}{
		{"empty file", "", "timestamp"},
		{"wrong header", "timestamp,month,user,status,market_pair,usd_volume\n", "user_id"},
		{"bad month", header + "2020-02-03 09:00:00,Feb,B,New,XBTZAR,1\n", "month"},
		{"bad status", header + "2020-02-03 09:00:00,2020-02,B,Lapsed,XBTZAR,1\n", "status"},
		{"bad volume", header + "2020-02-03 09:00:00,2020-02,B,New,XBTZAR,lots\n", "usd_volume"},
		{"bad timestamp", header + "yesterday,2020-02,B,New,XBTZAR,1\n", "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFacts(strings.NewReader(tt.input))
			require.Error(t, err)
			var schemaErr *apperrors.SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %v", err)
			assert.Equal(t, FactsTable, schemaErr.Table)
			assert.Equal(t, tt.column, schemaErr.Column)
		})
	}
}

func TestReadFactsToleratesBOM(t *testing.T) {
	input := "\ufefftimestamp,month,user_id,status,market_pair,usd_volume\n-,2020-02,A,Churned,-,0\n"

	got, err := ReadFacts(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Synthetic)
	assert.Equal(t, feb.Start(), got[0].Timestamp)
}
