package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth(t *testing.T) {
	m, err := ParseMonth("2020-12")
	require.NoError(t, err)

	assert.Equal(t, "2020-12", m.String())
	assert.Equal(t, Month{Year: 2021, Month: time.January}, m.Next())
	assert.True(t, m.Before(m.Next()))
	assert.False(t, m.Next().Before(m))
	assert.Equal(t, "Dec 2020", m.Label())

	_, err = ParseMonth("2020/12")
	assert.Error(t, err)
}

func TestMonthText(t *testing.T) {
	var m Month
	require.NoError(t, m.UnmarshalText([]byte("2020-02")))
	text, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2020-02", string(text))
}

func TestNormalizeTime(t *testing.T) {
	zone := time.FixedZone("SAST", 2*60*60)
	in := time.Date(2020, 1, 31, 23, 45, 10, 0, zone)

	got := NormalizeTime(in)

	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 23, got.Hour())
	assert.Equal(t, Month{Year: 2020, Month: time.January}, MonthOf(got))
	assert.Equal(t, time.Date(2020, 1, 31, 23, 0, 0, 0, time.UTC), FloorHour(got))
	assert.Equal(t, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), RoundHour(got))
}

func TestNewChurnRow(t *testing.T) {
	at := time.Date(2020, 2, 28, 17, 0, 0, 0, time.UTC)
	row := NewChurnRow("u1", Month{Year: 2020, Month: time.February}, at)

	assert.True(t, row.Synthetic)
	assert.Equal(t, StatusChurned, row.Status)
	assert.Equal(t, NotApplicable, row.MarketPair)
	assert.True(t, row.USDVolume.Valid)
	assert.True(t, row.USDVolume.Decimal.IsZero())
	assert.Equal(t, 0, row.Day())
	assert.Equal(t, -1, row.Hour())
}

func TestTradeMarketPair(t *testing.T) {
	assert.Equal(t, "XBT/ZAR", Trade{ID: "t1", BaseCurrency: "XBT", CounterCurrency: "ZAR"}.MarketPair())
}

func TestFactRowVolume(t *testing.T) {
	assert.True(t, FactRow{}.Volume().IsZero())
	row := FactRow{USDVolume: decimal.NewNullDecimal(decimal.RequireFromString("12.5"))}
	assert.Equal(t, "12.5", row.Volume().String())
}
