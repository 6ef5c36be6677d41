// Package enrichment turns parsed ledger, account, trade and rate tables into the
// per-trade fact table annotated with each customer's monthly lifecycle status.
//
// The stages run strictly in order and never mutate their inputs:
//
//	ResolveHourlyRates -> JoinLedger -> Valuate -> Classify -> Assemble
//
// Run chains them and keeps every intermediate table on the Result.
package enrichment
