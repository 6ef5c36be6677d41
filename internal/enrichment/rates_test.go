package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecohort/pkg/contracts/domain"
)

func TestResolveHourlyRates(t *testing.T) {
	ticks := []domain.RateTick{
		{Currency: "XBT", ReferenceAt: ts(t, "2020-01-01 10:05"), PricePerUSD: dec("10")},
		{Currency: "XBT", ReferenceAt: ts(t, "2020-01-01 10:59"), PricePerUSD: dec("20")},
		{Currency: "XBT", ReferenceAt: ts(t, "2020-01-01 11:00"), PricePerUSD: dec("30")},
		{Currency: "ETH", ReferenceAt: ts(t, "2020-01-01 10:30"), PricePerUSD: dec("1")},
	}

	rates := ResolveHourlyRates(ticks, domain.FloorHour)
	require.Len(t, rates, 3)

	assert.Equal(t, "ETH", rates[0].Currency)
	assert.Equal(t, "XBT", rates[1].Currency)
	assert.Equal(t, ts(t, "2020-01-01 10:00"), rates[1].Hour)
	assert.True(t, dec("15").Equal(rates[1].PricePerUSD))
	assert.Equal(t, 2, rates[1].Ticks)
	assert.True(t, dec("30").Equal(rates[2].PricePerUSD))
}

func TestResolveHourlyRatesIsOrderIndependent(t *testing.T) {
	ticks := []domain.RateTick{
		{Currency: "XBT", ReferenceAt: ts(t, "2020-01-01 10:05"), PricePerUSD: dec("1")},
		{Currency: "XBT", ReferenceAt: ts(t, "2020-01-01 10:10"), PricePerUSD: dec("2")},
		{Currency: "XBT", ReferenceAt: ts(t, "2020-01-01 10:15"), PricePerUSD: dec("4")},
	}
	reversed := []domain.RateTick{ticks[2], ticks[1], ticks[0]}

	a := ResolveHourlyRates(ticks, nil)
	b := ResolveHourlyRates(reversed, nil)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.True(t, a[0].PricePerUSD.Equal(b[0].PricePerUSD))
}

func TestRoundBucketing(t *testing.T) {
	bucket, err := BucketFunc(BucketRound)
	require.NoError(t, err)

	rates := ResolveHourlyRates([]domain.RateTick{
		{Currency: "XBT", ReferenceAt: ts(t, "2020-01-01 10:40"), PricePerUSD: dec("5")},
	}, bucket)
	require.Len(t, rates, 1)
	assert.Equal(t, ts(t, "2020-01-01 11:00"), rates[0].Hour)

	_, err = BucketFunc("ceil")
	assert.Error(t, err)
}

func TestRateBookMissingHour(t *testing.T) {
	book := NewRateBook([]domain.HourlyRate{{Currency: "XBT", Hour: ts(t, "2020-01-01 10:00"), PricePerUSD: dec("7")}})

	rate, ok := book.Lookup("XBT", ts(t, "2020-01-01 10:00"))
	require.True(t, ok)
	assert.True(t, dec("7").Equal(rate))

	_, ok = book.Lookup("XBT", ts(t, "2020-01-01 11:00"))
	assert.False(t, ok, "no rate is fabricated for hours without ticks")
	_, ok = book.Lookup("ETH", ts(t, "2020-01-01 10:00"))
	assert.False(t, ok)
}
