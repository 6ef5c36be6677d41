package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"tradecohort/internal/analytics"
)

// Table is a header plus records, ready for a CSV file or a sheet
type Table struct {
	Headers []string
	Records [][]string
}

// WriteTable writes t as CSV
func WriteTable(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	if err := cw.WriteAll(t.Records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// PairVolumeTable tabulates volume per market pair
func PairVolumeTable(rows []analytics.PairVolume) Table {
	t := Table{Headers: []string{"market_pair", "trades", "usd_volume", "usd_share"}}
	for _, r := range rows {
		t.Records = append(t.Records, []string{r.MarketPair, formatInt(r.Trades), formatDecimal(r.USDVolume), formatFloat(r.Share)})
	}
	return t
}

// MonthVolumeTable tabulates volume per month
func MonthVolumeTable(rows []analytics.MonthVolume) Table {
	t := Table{Headers: []string{"year_month", "trades", "usd_volume", "usd_share"}}
	for _, r := range rows {
		t.Records = append(t.Records, []string{r.Month.String(), formatInt(r.Trades), formatDecimal(r.USDVolume), formatFloat(r.Share)})
	}
	return t
}

// BucketTable tabulates an hourly or daily distribution; label names the bucket column
func BucketTable(label string, rows []analytics.Bucket) Table {
	t := Table{Headers: []string{label, "trades", "trade_share", "usd_volume", "usd_share"}}
	for _, r := range rows {
		t.Records = append(t.Records, []string{
			formatInt(r.Bucket), formatInt(r.Trades), formatFloat(r.TradeShare),
			formatDecimal(r.USDVolume), formatFloat(r.USDShare),
		})
	}
	return t
}

// PairCountTable tabulates customers by number of pairs traded
func PairCountTable(rows []analytics.PairCount) Table {
	t := Table{Headers: []string{"pairs", "customers", "share"}}
	for _, r := range rows {
		t.Records = append(t.Records, []string{formatInt(r.Pairs), formatInt(r.Customers), formatFloat(r.Share)})
	}
	return t
}

// ClientAverageTable tabulates a customer's averages against their cohort and month
func ClientAverageTable(rows []analytics.ClientAverage) Table {
	t := Table{Headers: []string{"year_month", "status", "avg_client_volume", "avg_status_volume", "avg_monthly_volume"}}
	for _, r := range rows {
		t.Records = append(t.Records, []string{
			r.Month.String(), string(r.Status),
			formatDecimal(r.ClientAverage), formatDecimal(r.StatusAverage), formatDecimal(r.MonthlyAverage),
		})
	}
	return t
}

// CohortTable tabulates per-month status counts
func CohortTable(rows []analytics.CohortMonth) Table {
	t := Table{Headers: []string{"year_month", "active", "new", "returning", "reactivated", "churned", "churn_rate"}}
	for _, r := range rows {
		t.Records = append(t.Records, []string{
			r.Month.String(), formatInt(r.Active), formatInt(r.New), formatInt(r.Returning),
			formatInt(r.Reactivated), formatInt(r.Churned), formatFloat(r.ChurnRate),
		})
	}
	return t
}
