package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
)

// Auditor is the read-only balance check the worker drives.
type Auditor interface {
	AuditWallet(ctx context.Context, profileID, walletID int64) (core.WalletAudit, error)
	AuditAll(ctx context.Context) ([]core.WalletAudit, error)
}

// AuditWorker re-checks wallet balances when ledger events arrive and
// sweeps every wallet periodically in case events were lost.
type AuditWorker struct {
	auditor  Auditor
	interval time.Duration
}

func NewAuditWorker(auditor Auditor, interval time.Duration) *AuditWorker {
	return &AuditWorker{
		auditor:  auditor,
		interval: interval,
	}
}

// HandleLedgerEvent audits the wallet named by the event. Events for
// wallet-less transactions are acknowledged without work.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.WalletID == nil {
		slog.DebugContext(ctx, "Ledger event without wallet, nothing to audit",
			"type", msg.Type,
			"transaction_id", msg.TransactionID)
		return nil
	}

	audit, err := w.auditor.AuditWallet(ctx, msg.ProfileID, *msg.WalletID)
	if core.IsNotFound(err) {
		// Requeueing would loop forever on a wallet that is gone.
		slog.WarnContext(ctx, "Ledger event references an unknown wallet",
			"profile_id", msg.ProfileID,
			"wallet_id", *msg.WalletID,
			"transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("audit wallet %d: %w", *msg.WalletID, err)
	}

	slog.InfoContext(ctx, "Wallet audited after ledger event",
		"type", msg.Type,
		"transaction_id", msg.TransactionID,
		"wallet_id", audit.WalletID,
		"consistent", audit.Consistent(),
		"drift_cents", audit.Drift.Cents)
	return nil
}

// Sweep audits every wallet once and returns how many drifted.
func (w *AuditWorker) Sweep(ctx context.Context) (int, error) {
	audits, err := w.auditor.AuditAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("audit all wallets: %w", err)
	}
	drifted := 0
	for _, a := range audits {
		if !a.Consistent() {
			drifted++
		}
	}
	return drifted, nil
}

// RunPeriodic sweeps at startup and then every interval until ctx is done.
func (w *AuditWorker) RunPeriodic(ctx context.Context) {
	w.sweepAndLog(ctx, "startup")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepAndLog(ctx, "periodic")
		}
	}
}

func (w *AuditWorker) sweepAndLog(ctx context.Context, trigger string) {
	drifted, err := w.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.ErrorContext(ctx, "Balance sweep failed", "trigger", trigger, "error", err)
		}
		return
	}
	if drifted > 0 {
		slog.WarnContext(ctx, "Balance sweep found drifted wallets",
			"trigger", trigger,
			"drifted", drifted)
	}
}
