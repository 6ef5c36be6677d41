package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CohortInputs are the paths of a fixture input set
type CohortInputs struct {
	Dir      string
	Accounts string
	Ledger   string
	Trades   string
	Rates    string
}

// CohortActivity is the fixture's trading calendar: customers active per month of 2020.
// Jan {A,B,C}, Feb {B,C,D}, Mar {C,D,E}: A churns in Feb, B in Mar; D and E are new.
var CohortActivity = map[int][]string{
	1: {"A", "B", "C"},
	2: {"B", "C", "D"},
	3: {"C", "D", "E"},
}

const (
	// CohortFixtureTrades is the number of trades the fixture produces
	CohortFixtureTrades = 9
	// CohortFixtureVolume is the collapsed usd volume of every fixture trade: mean(|0.01*8000|, |-1500*0.05|)
	CohortFixtureVolume = "77.5"
)

// WriteCohortInputs writes a consistent accounts/ledger/trades/rates set into a temp dir.
// Each active customer makes one XBT/ZAR trade per month: +0.01 XBT against -1500 ZAR
// at 10:15 on the customer's day, valued at XBT 8000 USD and ZAR 0.05 USD.
// A deposit without foreign id and an entry of an unknown account are included.
func WriteCohortInputs(t *testing.T) CohortInputs {
	t.Helper()
	dir := t.TempDir()

	accountID := map[string]int{"A": 1, "B": 2, "C": 3, "D": 4, "E": 5}

	var accounts, ledger, trades, rates strings.Builder
	accounts.WriteString("id,user_id,created_at\n")
	for _, user := range []string{"A", "B", "C", "D", "E"} {
		fmt.Fprintf(&accounts, "%d,%s,2019-12-01\n", accountID[user], user)
	}

	ledger.WriteString("id,account_id,foreign_id,currency,balance_delta,timestamp_at\n")
	trades.WriteString("id,base_currency,counter_currency\n")
	rates.WriteString("currency,reference_at,average_price_per_usd\n")

	entryID, tradeID := 1, 100
	for m := 1; m <= 3; m++ {
		for i, user := range CohortActivity[m] {
			at := fmt.Sprintf("2020-%02d-%02d 10:15:00+00:00", m, 5+i)
			fmt.Fprintf(&trades, "%d,XBT,ZAR\n", tradeID)
			fmt.Fprintf(&ledger, "%d,%d,%d,XBT,0.01,%s\n", entryID, accountID[user], tradeID, at)
			fmt.Fprintf(&ledger, "%d,%d,%d,ZAR,-1500,%s\n", entryID+1, accountID[user], tradeID, at)
			hour := fmt.Sprintf("2020-%02d-%02d 10", m, 5+i)
			fmt.Fprintf(&rates, "XBT,%s:05:00,7000\nXBT,%s:45:00,9000\nZAR,%s:30:00,0.05\n", hour, hour, hour)
			entryID += 2
			tradeID++
		}
	}
	fmt.Fprintf(&ledger, "%d,1,,ZAR,500,2020-01-02 09:00:00\n", entryID)
	fmt.Fprintf(&ledger, "%d,99,100,XBT,1,2020-01-02 09:00:00\n", entryID+1)

	in := CohortInputs{
		Dir:      dir,
		Accounts: filepath.Join(dir, "accounts.csv"),
		Ledger:   filepath.Join(dir, "ledger_entries.csv"),
		Trades:   filepath.Join(dir, "trades.csv"),
		Rates:    filepath.Join(dir, "rates.csv"),
	}
	for path, body := range map[string]string{
		in.Accounts: accounts.String(),
		in.Ledger:   ledger.String(),
		in.Trades:   trades.String(),
		in.Rates:    rates.String(),
	} {
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write fixture %s: %v", path, err)
		}
	}
	return in
}
