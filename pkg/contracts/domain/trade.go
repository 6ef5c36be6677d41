package domain

// Trade is a completed trade fill referenced by ledger legs through their foreign id
type Trade struct {
	ID              string `json:"id"`
	BaseCurrency    string `json:"base_currency"`
	CounterCurrency string `json:"counter_currency"`
}

// MarketPair returns the base/counter combination, e.g. "XBT/ZAR"
func (t Trade) MarketPair() string {
	return t.BaseCurrency + "/" + t.CounterCurrency
}
