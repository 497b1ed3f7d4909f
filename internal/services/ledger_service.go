package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/storage"
)

// EventPublisher announces committed ledger mutations.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// ChangeListener is told which profile's ledger changed after a commit.
type ChangeListener func(ctx context.Context, profileID int64)

// LedgerService records and deletes transactions, keeping every wallet's
// cached balance equal to its opening balance plus its transactions.
type LedgerService struct {
	repo      *storage.SQLiteRepository
	publisher EventPublisher
	listeners []ChangeListener
	now       func() time.Time
}

type LedgerOption func(*LedgerService)

// WithEventPublisher enables best-effort ledger events after each commit.
func WithEventPublisher(p EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithChangeListener(l ChangeListener) LedgerOption {
	return func(s *LedgerService) { s.listeners = append(s.listeners, l) }
}

func withClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(repo *storage.SQLiteRepository, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordTransaction stores a transaction and applies its amount to the
// referenced wallet in one atomic unit. The stored sign comes from the
// category type, never from the caller.
func (s *LedgerService) RecordTransaction(ctx context.Context, profileID int64, in core.NewTransaction) (core.Transaction, error) {
	if profileID <= 0 {
		return core.Transaction{}, core.NewValidationError("profile", "must be positive")
	}
	if err := in.Validate(); err != nil {
		slog.WarnContext(ctx, "Transaction rejected",
			"profile_id", profileID,
			"error", err)
		return core.Transaction{}, err
	}

	amount, err := core.MoneyFromDecimal(in.Amount)
	if err != nil {
		return core.Transaction{}, core.NewValidationError("amount", err.Error())
	}
	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	var walletID sql.NullInt64
	if in.WalletID != nil {
		walletID = sql.NullInt64{Int64: *in.WalletID, Valid: true}
	}

	var recorded storage.Transaction
	err = s.repo.WithTx(ctx, func(q *storage.Queries) error {
		category, err := q.GetCategoryByName(ctx, strings.TrimSpace(in.Category))
		if errors.Is(err, sql.ErrNoRows) {
			return core.NewValidationError("category", fmt.Sprintf("unknown category %q", in.Category))
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}

		id := in.ID
		if id == 0 {
			id, err = q.NextTransactionID(ctx, now.UnixMilli())
			if err != nil {
				return fmt.Errorf("assign transaction id: %w", err)
			}
		}

		signed := core.SignedAmount(amount, core.CategoryType(category.Type))
		recorded, err = q.CreateTransaction(ctx, storage.CreateTransactionParams{
			ID:          id,
			ProfileID:   profileID,
			Title:       strings.TrimSpace(in.Title),
			AmountCents: signed.Cents,
			Category:    category.Name,
			WalletID:    walletID,
			Date:        storage.FormatDate(date),
		})
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return &core.StoreError{Op: "record transaction", Err: fmt.Errorf("transaction %d already exists", id), Conflict: true}
			}
			return fmt.Errorf("insert transaction: %w", err)
		}

		if walletID.Valid {
			n, err := q.ApplyWalletDelta(ctx, storage.ApplyWalletDeltaParams{
				Delta:     signed.Cents,
				ID:        walletID.Int64,
				ProfileID: profileID,
			})
			if err != nil {
				return fmt.Errorf("apply wallet delta: %w", err)
			}
			if n == 0 {
				exists, err := walletExists(ctx, q, walletID.Int64, profileID)
				if err != nil {
					return err
				}
				if !exists {
					return &core.NotFoundError{Resource: "wallet", ID: walletID.Int64}
				}
				return core.NewValidationError("amount", "would push the wallet balance out of range")
			}
		}
		return nil
	})
	if err != nil {
		err = asLedgerError("record transaction", err)
		logFailure(ctx, "Failed to record transaction", profileID, err)
		return core.Transaction{}, err
	}

	tx, err := storage.TransactionToCore(recorded)
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "record transaction", Err: err}
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"profile_id", profileID,
		"transaction_id", tx.ID,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category,
		"wallet_id", walletID.Int64)

	s.afterCommit(ctx, amqp.EventTransactionRecorded, tx)
	return tx, nil
}

// DeleteTransaction removes a transaction and reverses its amount on the
// owning wallet in one atomic unit. A transaction that is absent, already
// deleted or owned by another profile yields Deleted=false and no error.
func (s *LedgerService) DeleteTransaction(ctx context.Context, profileID, id int64) (core.DeletionResult, error) {
	if profileID <= 0 {
		return core.DeletionResult{}, core.NewValidationError("profile", "must be positive")
	}
	if id <= 0 {
		return core.DeletionResult{}, core.NewValidationError("id", "must be positive")
	}

	var (
		removed storage.Transaction
		deleted bool
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		row, err := q.GetTransaction(ctx, storage.GetTransactionParams{ID: id, ProfileID: profileID})
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}

		if row.WalletID.Valid {
			n, err := q.ApplyWalletDelta(ctx, storage.ApplyWalletDeltaParams{
				Delta:     -row.AmountCents,
				ID:        row.WalletID.Int64,
				ProfileID: profileID,
			})
			if err != nil {
				return fmt.Errorf("reverse wallet delta: %w", err)
			}
			if n == 0 {
				exists, err := walletExists(ctx, q, row.WalletID.Int64, profileID)
				if err != nil {
					return err
				}
				if exists {
					return core.NewValidationError("amount", "reversal would push the wallet balance out of range")
				}
				slog.WarnContext(ctx, "Deleted transaction references a missing wallet",
					"profile_id", profileID,
					"transaction_id", id,
					"wallet_id", row.WalletID.Int64)
			}
		}

		n, err := q.DeleteTransaction(ctx, storage.DeleteTransactionParams{ID: id, ProfileID: profileID})
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("delete transaction: %d rows affected", n)
		}

		removed = row
		deleted = true
		return nil
	})
	if err != nil {
		err = asLedgerError("delete transaction", err)
		logFailure(ctx, "Failed to delete transaction", profileID, err)
		return core.DeletionResult{}, err
	}

	if !deleted {
		slog.InfoContext(ctx, "Transaction already absent",
			"profile_id", profileID,
			"transaction_id", id)
		return core.DeletionResult{Deleted: false}, nil
	}

	tx, err := storage.TransactionToCore(removed)
	if err != nil {
		// The row is gone; only the echo of it is unreadable.
		slog.WarnContext(ctx, "Deleted transaction has an unreadable date", "transaction_id", id, "error", err)
		return core.DeletionResult{Deleted: true}, nil
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"profile_id", profileID,
		"transaction_id", id,
		"amount_cents", tx.Amount.Cents)

	s.afterCommit(ctx, amqp.EventTransactionDeleted, tx)
	return core.DeletionResult{Deleted: true, Transaction: &tx}, nil
}

// ListTransactions is a plain read of the profile's ledger.
func (s *LedgerService) ListTransactions(ctx context.Context, profileID int64, walletID *int64) ([]core.Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, profileID, walletID)
	if err != nil {
		return nil, &core.StoreError{Op: "list transactions", Err: err}
	}
	return txs, nil
}

func (s *LedgerService) afterCommit(ctx context.Context, eventType string, tx core.Transaction) {
	for _, l := range s.listeners {
		l(ctx, tx.ProfileID)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event",
			"type", eventType,
			"transaction_id", tx.ID)
		return
	}
	// The commit already happened; a lost event only delays the auditor.
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEventMessage(eventType, tx)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", eventType,
			"transaction_id", tx.ID,
			"error", err)
	}
}

// walletExists tells a refused balance update on a live wallet apart from
// one whose wallet is gone or belongs to another profile.
func walletExists(ctx context.Context, q *storage.Queries, walletID, profileID int64) (bool, error) {
	_, err := q.GetWallet(ctx, storage.GetWalletParams{ID: walletID, ProfileID: profileID})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get wallet: %w", err)
	}
	return true, nil
}

// asLedgerError keeps validation and not-found errors as they are and wraps
// everything else, including cancellation, as a StoreError.
func asLedgerError(op string, err error) error {
	if core.IsValidation(err) || core.IsNotFound(err) || core.IsStore(err) {
		return err
	}
	return &core.StoreError{Op: op, Err: err}
}

func logFailure(ctx context.Context, msg string, profileID int64, err error) {
	if core.IsValidation(err) || core.IsNotFound(err) {
		slog.WarnContext(ctx, msg, "profile_id", profileID, "error", err)
		return
	}
	slog.ErrorContext(ctx, msg, "profile_id", profileID, "error", err)
}
