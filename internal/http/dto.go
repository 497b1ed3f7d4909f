package http

import (
	"encoding/json"
	"time"

	"cashflow/internal/core"
)

type transactionResponse struct {
	ID        int64       `json:"id"`
	ProfileID int64       `json:"profileId"`
	Title     string      `json:"title"`
	Amount    json.Number `json:"amount"`
	Category  string      `json:"category"`
	WalletID  *int64      `json:"walletId"`
	Date      string      `json:"date"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		ProfileID: t.ProfileID,
		Title:     t.Title,
		Amount:    amount(t.Amount),
		Category:  t.Category,
		WalletID:  t.WalletID,
		Date:      t.Date.UTC().Format(time.RFC3339),
	}
}

type walletResponse struct {
	ID             int64       `json:"id"`
	ProfileID      int64       `json:"profileId"`
	Name           string      `json:"name"`
	Currency       string      `json:"currency"`
	Balance        json.Number `json:"balance"`
	OpeningBalance json.Number `json:"openingBalance"`
	Display        string      `json:"display"`
	Kind           string      `json:"kind"`
	Number         string      `json:"number,omitempty"`
	Color          string      `json:"color,omitempty"`
}

func newWalletResponse(w core.Wallet) walletResponse {
	currency := w.WalletCurrency()
	return walletResponse{
		ID:             w.ID,
		ProfileID:      w.ProfileID,
		Name:           w.Name,
		Currency:       currency,
		Balance:        amount(w.Balance),
		OpeningBalance: amount(w.OpeningBalance),
		Display:        w.Balance.Display(currency),
		Kind:           w.Kind,
		Number:         w.Number,
		Color:          w.Color,
	}
}

type auditResponse struct {
	WalletID     int64       `json:"walletId"`
	Currency     string      `json:"currency"`
	Balance      json.Number `json:"balance"`
	Opening      json.Number `json:"openingBalance"`
	LedgerSum    json.Number `json:"ledgerSum"`
	Expected     json.Number `json:"expected"`
	Drift        json.Number `json:"drift"`
	Transactions int         `json:"transactions"`
	Consistent   bool        `json:"consistent"`
}

func newAuditResponse(a core.WalletAudit) auditResponse {
	return auditResponse{
		WalletID:     a.WalletID,
		Currency:     a.Currency,
		Balance:      amount(a.Balance),
		Opening:      amount(a.OpeningBalance),
		LedgerSum:    amount(a.LedgerSum),
		Expected:     amount(a.Expected),
		Drift:        amount(a.Drift),
		Transactions: a.Transactions,
		Consistent:   a.Consistent(),
	}
}

type categoryShareResponse struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
	Percent  float64     `json:"percent"`
}

type currencyStatsResponse struct {
	Currency          string                  `json:"currency"`
	Income            json.Number             `json:"income"`
	Expense           json.Number             `json:"expense"`
	Net               json.Number             `json:"net"`
	NetDisplay        string                  `json:"netDisplay"`
	Count             int                     `json:"count"`
	IncomeByCategory  []categoryShareResponse `json:"incomeByCategory"`
	ExpenseByCategory []categoryShareResponse `json:"expenseByCategory"`
}

type statsResponse struct {
	ProfileID  int64                   `json:"profileId"`
	From       string                  `json:"from,omitempty"`
	To         string                  `json:"to,omitempty"`
	Currencies []currencyStatsResponse `json:"currencies"`
}

func newStatsResponse(s core.Stats) statsResponse {
	resp := statsResponse{
		ProfileID:  s.ProfileID,
		Currencies: make([]currencyStatsResponse, 0, len(s.Currencies)),
	}
	if !s.From.IsZero() {
		resp.From = s.From.Format(time.DateOnly)
	}
	if !s.To.IsZero() {
		// the filter bound is exclusive; report the last included day
		resp.To = s.To.AddDate(0, 0, -1).Format(time.DateOnly)
	}
	for _, c := range s.Currencies {
		resp.Currencies = append(resp.Currencies, currencyStatsResponse{
			Currency:          c.Currency,
			Income:            amount(c.Income),
			Expense:           amount(c.Expense),
			Net:               amount(c.Net),
			NetDisplay:        c.Net.Display(c.Currency),
			Count:             c.Count,
			IncomeByCategory:  newShares(c.IncomeByCategory),
			ExpenseByCategory: newShares(c.ExpenseByCategory),
		})
	}
	return resp
}

func newShares(in []core.CategoryShare) []categoryShareResponse {
	out := make([]categoryShareResponse, 0, len(in))
	for _, s := range in {
		out = append(out, categoryShareResponse{
			Category: s.Category,
			Amount:   amount(s.Amount),
			Percent:  s.Percent,
		})
	}
	return out
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
	Type string `json:"type"`
}

type profileResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func amount(m core.Money) json.Number {
	return json.Number(m.String())
}
