package core

import "time"

// MonthSummary is the month-to-date overview pushed by the daily job.
type MonthSummary struct {
	Year    int
	Month   time.Month
	Totals  Totals
	Balance Money
	Count   int
}

// SummarizeMonth scopes txs to the month of at and computes totals.
func SummarizeMonth(txs []Transaction, at time.Time, balance Money) MonthSummary {
	at = at.UTC()
	f := FilterState{Month: at.Month(), Year: at.Year()}
	return MonthSummary{
		Year:    at.Year(),
		Month:   at.Month(),
		Totals:  ComputeTotals(txs, f),
		Balance: balance,
		Count:   len(Apply(txs, f)),
	}
}
