package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/core"
	"cashflow/internal/storage"
)

// AuditService checks that each wallet's cached balance equals its opening
// balance plus the sum of its transactions. It only reads.
type AuditService struct {
	repo        *storage.SQLiteRepository
	concurrency int
}

func NewAuditService(repo *storage.SQLiteRepository, concurrency int) *AuditService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AuditService{repo: repo, concurrency: concurrency}
}

// AuditWallet reports the drift of one wallet in the profile's scope.
// Balance and ledger sum are read from one snapshot so that a concurrent
// write cannot show up as drift. The read neither takes nor waits for the
// write lock.
func (s *AuditService) AuditWallet(ctx context.Context, profileID, walletID int64) (core.WalletAudit, error) {
	var (
		wallet storage.Wallet
		sum    storage.WalletLedgerSumRow
	)
	err := s.repo.WithReadTx(ctx, func(q *storage.Queries) error {
		var err error
		wallet, err = q.GetWallet(ctx, storage.GetWalletParams{ID: walletID, ProfileID: profileID})
		if err != nil {
			return err
		}
		sum, err = q.WalletLedgerSum(ctx, storage.WalletLedgerSumParams{WalletID: walletID, ProfileID: profileID})
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.WalletAudit{}, &core.NotFoundError{Resource: "wallet", ID: walletID}
		}
		return core.WalletAudit{}, &core.StoreError{Op: "audit wallet", Err: err}
	}

	audit := buildAudit(storage.WalletToCore(wallet), core.Money{Cents: sum.TotalCents}, int(sum.Entries))
	if !audit.Consistent() {
		slog.WarnContext(ctx, "Wallet balance drifted from ledger",
			"profile_id", profileID,
			"wallet_id", walletID,
			"balance_cents", audit.Balance.Cents,
			"expected_cents", audit.Expected.Cents,
			"drift_cents", audit.Drift.Cents)
	}
	return audit, nil
}

// AuditAll audits every wallet of every profile, a bounded number at a time.
// The reports come back in wallet order.
func (s *AuditService) AuditAll(ctx context.Context) ([]core.WalletAudit, error) {
	wallets, err := s.repo.ListAllWallets(ctx)
	if err != nil {
		return nil, &core.StoreError{Op: "audit all", Err: err}
	}

	audits := make([]core.WalletAudit, len(wallets))
	var (
		mu      sync.Mutex
		drifted int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, w := range wallets {
		i, w := i, w
		g.Go(func() error {
			a, err := s.AuditWallet(gctx, w.ProfileID, w.ID)
			if err != nil {
				return err
			}
			audits[i] = a
			if !a.Consistent() {
				mu.Lock()
				drifted++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Balance audit completed",
		"wallets", len(wallets),
		"drifted", drifted)
	return audits, nil
}

func buildAudit(w core.Wallet, ledgerSum core.Money, entries int) core.WalletAudit {
	expected := w.OpeningBalance.Add(ledgerSum)
	return core.WalletAudit{
		WalletID:       w.ID,
		ProfileID:      w.ProfileID,
		Currency:       w.WalletCurrency(),
		Balance:        w.Balance,
		OpeningBalance: w.OpeningBalance,
		LedgerSum:      ledgerSum,
		Expected:       expected,
		Drift:          w.Balance.Sub(expected),
		Transactions:   entries,
	}
}
