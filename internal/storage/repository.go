package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cashflow/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DateLayout is the on-disk form of transaction dates. All dates are stored
// in UTC so that lexical order equals chronological order.
const DateLayout = time.RFC3339

// openEnd sorts after every DateLayout value.
const openEnd = "9999"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN builds the connection string used for both the pool and migrations.
// Write transactions take the database lock on BEGIN so that concurrent
// writers queue on busy_timeout instead of failing on lock upgrade.
func DSN(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=busy_timeout(10000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Queries runs statements outside any transaction, for single-statement
// writes and plain reads.
func (r *SQLiteRepository) Queries() *Queries {
	return r.queries
}

// DB exposes the pool for maintenance tasks and tests.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// WithTx runs fn inside one database transaction. The transaction commits
// only if fn returns nil; any error, panic or cancelled context rolls back
// every statement fn issued.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	return r.runTx(ctx, nil, fn)
}

// WithReadTx runs fn in a read-only transaction. It begins deferred rather
// than immediate, so it sees one consistent snapshot without taking the
// write lock or waiting behind an open writer.
func (r *SQLiteRepository) WithReadTx(ctx context.Context, fn func(q *Queries) error) error {
	return r.runTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (r *SQLiteRepository) runTx(ctx context.Context, opts *sql.TxOptions, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
	}()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListTransactions returns a profile's entries newest first, optionally
// restricted to one wallet.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, profileID int64, walletID *int64) ([]core.Transaction, error) {
	var (
		rows []Transaction
		err  error
	)
	if walletID != nil {
		rows, err = r.queries.ListTransactionsByWallet(ctx, ListTransactionsByWalletParams{
			ProfileID: profileID,
			WalletID:  *walletID,
		})
	} else {
		rows, err = r.queries.ListTransactionsByProfile(ctx, profileID)
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactionsToCore(rows)
}

// ListTransactionsInRange returns entries dated in [from, to). Zero bounds
// are open.
func (r *SQLiteRepository) ListTransactionsInRange(ctx context.Context, profileID int64, from, to time.Time) ([]core.Transaction, error) {
	params := ListTransactionsInRangeParams{ProfileID: profileID, ToDate: openEnd}
	if !from.IsZero() {
		params.FromDate = FormatDate(from)
	}
	if !to.IsZero() {
		params.ToDate = FormatDate(to)
	}
	rows, err := r.queries.ListTransactionsInRange(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	return transactionsToCore(rows)
}

func (r *SQLiteRepository) GetWallet(ctx context.Context, profileID, walletID int64) (core.Wallet, error) {
	w, err := r.queries.GetWallet(ctx, GetWalletParams{ID: walletID, ProfileID: profileID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, &core.NotFoundError{Resource: "wallet", ID: walletID}
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return WalletToCore(w), nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, profileID int64) ([]core.Wallet, error) {
	rows, err := r.queries.ListWalletsByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return walletsToCore(rows), nil
}

// ListAllWallets returns every wallet of every profile, for auditing.
func (r *SQLiteRepository) ListAllWallets(ctx context.Context) ([]core.Wallet, error) {
	rows, err := r.queries.ListAllWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all wallets: %w", err)
	}
	return walletsToCore(rows), nil
}

// CreateWallet inserts a wallet whose opening balance equals its balance.
func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	kind := w.Kind
	if kind == "" {
		kind = "bank"
	}
	row, err := r.queries.CreateWallet(ctx, CreateWalletParams{
		ProfileID:           w.ProfileID,
		Name:                w.Name,
		Kind:                kind,
		Currency:            w.WalletCurrency(),
		BalanceCents:        w.Balance.Cents,
		OpeningBalanceCents: w.Balance.Cents,
		Number:              w.Number,
		Color:               w.Color,
	})
	if err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	slog.InfoContext(ctx, "Wallet created",
		"id", row.ID,
		"profile_id", row.ProfileID,
		"currency", row.Currency,
		"balance_cents", row.BalanceCents)
	return WalletToCore(row), nil
}

// WalletLedgerSum returns the signed sum and count of the wallet's entries.
func (r *SQLiteRepository) WalletLedgerSum(ctx context.Context, profileID, walletID int64) (core.Money, int, error) {
	row, err := r.queries.WalletLedgerSum(ctx, WalletLedgerSumParams{WalletID: walletID, ProfileID: profileID})
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("wallet ledger sum: %w", err)
	}
	return core.Money{Cents: row.TotalCents}, int(row.Entries), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = CategoryToCore(c)
	}
	return out, nil
}

func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.queries.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]core.Profile, len(rows))
	for i, p := range rows {
		out[i] = core.Profile{ID: p.ID, Name: p.Name, Email: p.Email, Avatar: p.Avatar}
	}
	return out, nil
}

// IsUniqueViolation reports whether err comes from a primary key or unique
// constraint.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t, nil
}

func CategoryToCore(c Category) core.Category {
	return core.Category{ID: c.ID, Name: c.Name, Icon: c.Icon, Type: core.CategoryType(c.Type)}
}

func WalletToCore(w Wallet) core.Wallet {
	return core.Wallet{
		ID:             w.ID,
		ProfileID:      w.ProfileID,
		Name:           w.Name,
		Currency:       w.Currency,
		Balance:        core.Money{Cents: w.BalanceCents},
		OpeningBalance: core.Money{Cents: w.OpeningBalanceCents},
		Kind:           w.Kind,
		Number:         w.Number,
		Color:          w.Color,
	}
}

func TransactionToCore(t Transaction) (core.Transaction, error) {
	date, err := ParseDate(t.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	out := core.Transaction{
		ID:        t.ID,
		ProfileID: t.ProfileID,
		Title:     t.Title,
		Amount:    core.Money{Cents: t.AmountCents},
		Category:  t.Category,
		Date:      date,
	}
	if t.WalletID.Valid {
		id := t.WalletID.Int64
		out.WalletID = &id
	}
	return out, nil
}

func transactionsToCore(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := TransactionToCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func walletsToCore(rows []Wallet) []core.Wallet {
	out := make([]core.Wallet, len(rows))
	for i, w := range rows {
		out[i] = WalletToCore(w)
	}
	return out
}
