package core

import "time"

// CategoryShare is one category's total and its share of the same-kind total.
type CategoryShare struct {
	Category string
	Amount   Money // magnitude, always >= 0
	Percent  float64
}

// CurrencyStats aggregates one currency's transactions.
type CurrencyStats struct {
	Currency          string
	Income            Money
	Expense           Money // magnitude, always >= 0
	Net               Money
	Count             int
	IncomeByCategory  []CategoryShare
	ExpenseByCategory []CategoryShare
}

// Stats is a best-effort snapshot of a profile's ledger.
type Stats struct {
	ProfileID  int64
	From       time.Time
	To         time.Time
	Currencies []CurrencyStats
}

// StatsFilter restricts the aggregated date range. Zero bounds are open.
type StatsFilter struct {
	From time.Time
	To   time.Time
}

// WalletAudit compares a wallet's cached balance with the ledger.
type WalletAudit struct {
	WalletID       int64
	ProfileID      int64
	Currency       string
	Balance        Money
	OpeningBalance Money
	LedgerSum      Money
	Expected       Money
	Drift          Money
	Transactions   int
}

func (a WalletAudit) Consistent() bool {
	return a.Drift.IsZero()
}
