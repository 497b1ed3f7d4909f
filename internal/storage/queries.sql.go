package storage

import (
	"context"
	"database/sql"
)

const getCategoryByName = `-- name: GetCategoryByName :one
SELECT id, name, icon, type FROM categories
WHERE name = ?
`

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategoryByName, name)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Icon, &i.Type)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT id, name, icon, type FROM categories
ORDER BY name ASC
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Icon, &i.Type); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProfiles = `-- name: ListProfiles :many
SELECT id, name, email, avatar FROM profiles
ORDER BY id ASC
`

func (q *Queries) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, listProfiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Profile
	for rows.Next() {
		var i Profile
		if err := rows.Scan(&i.ID, &i.Name, &i.Email, &i.Avatar); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const walletColumns = `id, profile_id, name, kind, currency, balance_cents, opening_balance_cents, number, color`

func scanWallet(row interface{ Scan(...interface{}) error }, i *Wallet) error {
	return row.Scan(
		&i.ID,
		&i.ProfileID,
		&i.Name,
		&i.Kind,
		&i.Currency,
		&i.BalanceCents,
		&i.OpeningBalanceCents,
		&i.Number,
		&i.Color,
	)
}

const getWallet = `-- name: GetWallet :one
SELECT ` + walletColumns + ` FROM wallets
WHERE id = ? AND profile_id = ?
`

type GetWalletParams struct {
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profile_id"`
}

func (q *Queries) GetWallet(ctx context.Context, arg GetWalletParams) (Wallet, error) {
	row := q.db.QueryRowContext(ctx, getWallet, arg.ID, arg.ProfileID)
	var i Wallet
	err := scanWallet(row, &i)
	return i, err
}

const listWalletsByProfile = `-- name: ListWalletsByProfile :many
SELECT ` + walletColumns + ` FROM wallets
WHERE profile_id = ?
ORDER BY id ASC
`

func (q *Queries) ListWalletsByProfile(ctx context.Context, profileID int64) ([]Wallet, error) {
	return q.listWallets(ctx, listWalletsByProfile, profileID)
}

const listAllWallets = `-- name: ListAllWallets :many
SELECT ` + walletColumns + ` FROM wallets
ORDER BY profile_id ASC, id ASC
`

func (q *Queries) ListAllWallets(ctx context.Context) ([]Wallet, error) {
	return q.listWallets(ctx, listAllWallets)
}

func (q *Queries) listWallets(ctx context.Context, query string, args ...interface{}) ([]Wallet, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Wallet
	for rows.Next() {
		var i Wallet
		if err := scanWallet(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const applyWalletDelta = `-- name: ApplyWalletDelta :execrows
UPDATE wallets SET balance_cents = balance_cents + ?
WHERE id = ? AND profile_id = ?
  AND balance_cents + ? BETWEEN -9000000000000000000 AND 9000000000000000000
`

type ApplyWalletDeltaParams struct {
	Delta     int64 `json:"delta"`
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profile_id"`
}

func (q *Queries) ApplyWalletDelta(ctx context.Context, arg ApplyWalletDeltaParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, applyWalletDelta,
		arg.Delta,
		arg.ID,
		arg.ProfileID,
		arg.Delta,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateWallet = `-- name: UpdateWallet :execrows
UPDATE wallets
SET name = COALESCE(?, name),
    balance_cents = COALESCE(?, balance_cents)
WHERE id = ? AND profile_id = ?
`

type UpdateWalletParams struct {
	Name         sql.NullString `json:"name"`
	BalanceCents sql.NullInt64  `json:"balance_cents"`
	ID           int64          `json:"id"`
	ProfileID    int64          `json:"profile_id"`
}

func (q *Queries) UpdateWallet(ctx context.Context, arg UpdateWalletParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateWallet,
		arg.Name,
		arg.BalanceCents,
		arg.ID,
		arg.ProfileID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createWallet = `-- name: CreateWallet :one
INSERT INTO wallets (profile_id, name, kind, currency, balance_cents, opening_balance_cents, number, color)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + walletColumns + `
`

type CreateWalletParams struct {
	ProfileID           int64  `json:"profile_id"`
	Name                string `json:"name"`
	Kind                string `json:"kind"`
	Currency            string `json:"currency"`
	BalanceCents        int64  `json:"balance_cents"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
	Number              string `json:"number"`
	Color               string `json:"color"`
}

func (q *Queries) CreateWallet(ctx context.Context, arg CreateWalletParams) (Wallet, error) {
	row := q.db.QueryRowContext(ctx, createWallet,
		arg.ProfileID,
		arg.Name,
		arg.Kind,
		arg.Currency,
		arg.BalanceCents,
		arg.OpeningBalanceCents,
		arg.Number,
		arg.Color,
	)
	var i Wallet
	err := scanWallet(row, &i)
	return i, err
}

const nextTransactionID = `-- name: NextTransactionID :one
SELECT MAX(?, COALESCE(MAX(id), 0) + 1) FROM transactions
`

// NextTransactionID returns floor, or one past the largest id in use if
// that is greater.
func (q *Queries) NextTransactionID(ctx context.Context, floor int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, nextTransactionID, floor)
	var next int64
	err := row.Scan(&next)
	return next, err
}

const transactionColumns = `id, profile_id, title, amount_cents, category, wallet_id, date`

func scanTransaction(row interface{ Scan(...interface{}) error }, i *Transaction) error {
	return row.Scan(
		&i.ID,
		&i.ProfileID,
		&i.Title,
		&i.AmountCents,
		&i.Category,
		&i.WalletID,
		&i.Date,
	)
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (id, profile_id, title, amount_cents, category, wallet_id, date)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns + `
`

type CreateTransactionParams struct {
	ID          int64         `json:"id"`
	ProfileID   int64         `json:"profile_id"`
	Title       string        `json:"title"`
	AmountCents int64         `json:"amount_cents"`
	Category    string        `json:"category"`
	WalletID    sql.NullInt64 `json:"wallet_id"`
	Date        string        `json:"date"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID,
		arg.ProfileID,
		arg.Title,
		arg.AmountCents,
		arg.Category,
		arg.WalletID,
		arg.Date,
	)
	var i Transaction
	err := scanTransaction(row, &i)
	return i, err
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions
WHERE id = ? AND profile_id = ?
`

type GetTransactionParams struct {
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profile_id"`
}

func (q *Queries) GetTransaction(ctx context.Context, arg GetTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, arg.ID, arg.ProfileID)
	var i Transaction
	err := scanTransaction(row, &i)
	return i, err
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions
WHERE id = ? AND profile_id = ?
`

type DeleteTransactionParams struct {
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profile_id"`
}

func (q *Queries) DeleteTransaction(ctx context.Context, arg DeleteTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, arg.ID, arg.ProfileID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactionsByProfile = `-- name: ListTransactionsByProfile :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE profile_id = ?
ORDER BY date DESC, id DESC
`

func (q *Queries) ListTransactionsByProfile(ctx context.Context, profileID int64) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByProfile, profileID)
}

const listTransactionsByWallet = `-- name: ListTransactionsByWallet :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE profile_id = ? AND wallet_id = ?
ORDER BY date DESC, id DESC
`

type ListTransactionsByWalletParams struct {
	ProfileID int64 `json:"profile_id"`
	WalletID  int64 `json:"wallet_id"`
}

func (q *Queries) ListTransactionsByWallet(ctx context.Context, arg ListTransactionsByWalletParams) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByWallet, arg.ProfileID, arg.WalletID)
}

const listTransactionsInRange = `-- name: ListTransactionsInRange :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE profile_id = ? AND date >= ? AND date < ?
ORDER BY date DESC, id DESC
`

type ListTransactionsInRangeParams struct {
	ProfileID int64  `json:"profile_id"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
}

func (q *Queries) ListTransactionsInRange(ctx context.Context, arg ListTransactionsInRangeParams) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsInRange, arg.ProfileID, arg.FromDate, arg.ToDate)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := scanTransaction(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const walletLedgerSum = `-- name: WalletLedgerSum :one
SELECT CAST(COALESCE(SUM(amount_cents), 0) AS INTEGER) AS total_cents, COUNT(*) AS entries
FROM transactions
WHERE wallet_id = ? AND profile_id = ?
`

type WalletLedgerSumParams struct {
	WalletID  int64 `json:"wallet_id"`
	ProfileID int64 `json:"profile_id"`
}

type WalletLedgerSumRow struct {
	TotalCents int64 `json:"total_cents"`
	Entries    int64 `json:"entries"`
}

func (q *Queries) WalletLedgerSum(ctx context.Context, arg WalletLedgerSumParams) (WalletLedgerSumRow, error) {
	row := q.db.QueryRowContext(ctx, walletLedgerSum, arg.WalletID, arg.ProfileID)
	var i WalletLedgerSumRow
	err := row.Scan(&i.TotalCents, &i.Entries)
	return i, err
}
