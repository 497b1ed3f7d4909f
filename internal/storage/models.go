package storage

import (
	"database/sql"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	Type string `json:"type"`
}

type Profile struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

type Transaction struct {
	ID          int64         `json:"id"`
	ProfileID   int64         `json:"profile_id"`
	Title       string        `json:"title"`
	AmountCents int64         `json:"amount_cents"`
	Category    string        `json:"category"`
	WalletID    sql.NullInt64 `json:"wallet_id"`
	Date        string        `json:"date"`
}

type Wallet struct {
	ID                  int64  `json:"id"`
	ProfileID           int64  `json:"profile_id"`
	Name                string `json:"name"`
	Kind                string `json:"kind"`
	Currency            string `json:"currency"`
	BalanceCents        int64  `json:"balance_cents"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
	Number              string `json:"number"`
	Color               string `json:"color"`
}
