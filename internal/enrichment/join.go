package enrichment

import "tradecohort/pkg/contracts/domain"

// JoinStats counts rows through the join stage
type JoinStats struct {
	LedgerRows       int `json:"ledger_rows"`
	AfterAccounts    int `json:"after_accounts"`
	AfterTrades      int `json:"after_trades"`
	DuplicatesPruned int `json:"duplicates_pruned"`
	DroppedNoUser    int `json:"dropped_no_user"`
	DroppedNoTrade   int `json:"dropped_no_trade"`
	Output           int `json:"output"`
}

// JoinAccounts left-joins entries to accounts on account id, then drops exact duplicates.
// Entries of unknown accounts keep an empty user id.
func JoinAccounts(entries []domain.LedgerEntry, accounts []domain.Account) []domain.EnrichedEntry {
	out, _ := joinAccounts(entries, accounts)
	return out
}

// JoinTrades left-joins rows to trades on foreign id = trade id, then drops exact duplicates.
// Rows without a matching trade keep an empty market pair.
func JoinTrades(rows []domain.EnrichedEntry, trades []domain.Trade) []domain.EnrichedEntry {
	out, _ := joinTrades(rows, trades)
	return out
}

// JoinLedger resolves every entry to its customer and trade and keeps only entries
// traceable to both.
func JoinLedger(entries []domain.LedgerEntry, accounts []domain.Account, trades []domain.Trade) ([]domain.EnrichedEntry, JoinStats) {
	stats := JoinStats{LedgerRows: len(entries)}

	withUsers, removed := joinAccounts(entries, accounts)
	stats.AfterAccounts = len(withUsers)
	stats.DuplicatesPruned += removed

	withTrades, removed := joinTrades(withUsers, trades)
	stats.AfterTrades = len(withTrades)
	stats.DuplicatesPruned += removed

	out := make([]domain.EnrichedEntry, 0, len(withTrades))
	for _, r := range withTrades {
		switch {
		case r.UserID == "":
			stats.DroppedNoUser++
		case r.MarketPair == "":
			stats.DroppedNoTrade++
		default:
			out = append(out, r)
		}
	}
	stats.Output = len(out)
	return out, stats
}

func joinAccounts(entries []domain.LedgerEntry, accounts []domain.Account) ([]domain.EnrichedEntry, int) {
	byID := make(map[string][]domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = append(byID[a.ID], a)
	}

	joined := make([]domain.EnrichedEntry, 0, len(entries))
	for _, e := range entries {
		matches := byID[e.AccountID]
		if len(matches) == 0 {
			joined = append(joined, domain.EnrichedEntry{LedgerEntry: e})
			continue
		}
		for _, a := range matches {
			joined = append(joined, domain.EnrichedEntry{LedgerEntry: e, UserID: a.UserID})
		}
	}
	return dedupe(joined)
}

func joinTrades(rows []domain.EnrichedEntry, trades []domain.Trade) ([]domain.EnrichedEntry, int) {
	byID := make(map[string][]domain.Trade, len(trades))
	for _, t := range trades {
		byID[t.ID] = append(byID[t.ID], t)
	}

	joined := make([]domain.EnrichedEntry, 0, len(rows))
	for _, r := range rows {
		var matches []domain.Trade
		if r.HasForeignID() {
			matches = byID[r.ForeignID]
		}
		if len(matches) == 0 {
			joined = append(joined, r)
			continue
		}
		for _, t := range matches {
			row := r
			row.TradeID = t.ID
			row.MarketPair = t.MarketPair()
			joined = append(joined, row)
		}
	}
	return dedupe(joined)
}

// dedupe keeps the first occurrence of each distinct row and reports how many it removed
func dedupe(rows []domain.EnrichedEntry) ([]domain.EnrichedEntry, int) {
	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.EnrichedEntry, 0, len(rows))
	for _, r := range rows {
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}
