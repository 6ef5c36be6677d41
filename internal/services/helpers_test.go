package services_test

import (
	"tradecohort/internal/dataprocessing"
	"tradecohort/internal/shared/testutil"
)

func dataInputs(in testutil.CohortInputs) dataprocessing.Inputs {
	return dataprocessing.Inputs{
		Accounts: in.Accounts,
		Ledger:   in.Ledger,
		Trades:   in.Trades,
		Rates:    in.Rates,
	}
}
