package services

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"cashflow/internal/core"
	"cashflow/internal/storage"
)

// WalletService lists wallets and applies manual corrections.
type WalletService struct {
	repo      *storage.SQLiteRepository
	listeners []ChangeListener
}

func NewWalletService(repo *storage.SQLiteRepository, listeners ...ChangeListener) *WalletService {
	return &WalletService{repo: repo, listeners: listeners}
}

func (s *WalletService) ListWallets(ctx context.Context, profileID int64) ([]core.Wallet, error) {
	wallets, err := s.repo.ListWallets(ctx, profileID)
	if err != nil {
		return nil, &core.StoreError{Op: "list wallets", Err: err}
	}
	return wallets, nil
}

// UpdateWallet overwrites the wallet's name and/or balance in a single
// statement. A balance written here is a correction, not a ledger event: the
// wallet no longer equals its opening balance plus its transactions, and
// the auditor will report the difference as drift.
func (s *WalletService) UpdateWallet(ctx context.Context, profileID int64, u core.WalletUpdate) error {
	if profileID <= 0 {
		return core.NewValidationError("profile", "must be positive")
	}
	if err := u.Validate(); err != nil {
		return err
	}

	params := storage.UpdateWalletParams{ID: u.ID, ProfileID: profileID}
	if u.Name != nil {
		params.Name = sql.NullString{String: strings.TrimSpace(*u.Name), Valid: true}
	}
	if u.Balance != nil {
		balance, err := core.MoneyFromDecimal(*u.Balance)
		if err != nil {
			return core.NewValidationError("balance", err.Error())
		}
		params.BalanceCents = sql.NullInt64{Int64: balance.Cents, Valid: true}
	}

	n, err := s.repo.Queries().UpdateWallet(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to update wallet",
			"profile_id", profileID,
			"wallet_id", u.ID,
			"error", err)
		return &core.StoreError{Op: "update wallet", Err: err}
	}
	if n == 0 {
		return &core.NotFoundError{Resource: "wallet", ID: u.ID}
	}

	slog.InfoContext(ctx, "Wallet updated manually",
		"profile_id", profileID,
		"wallet_id", u.ID,
		"name_changed", params.Name.Valid,
		"balance_overwritten", params.BalanceCents.Valid,
		"balance_cents", params.BalanceCents.Int64)

	for _, l := range s.listeners {
		l(ctx, profileID)
	}
	return nil
}
