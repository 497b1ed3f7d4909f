package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
)

type fakeAuditor struct {
	mu       sync.Mutex
	audited  [][2]int64
	sweeps   int
	walletFn func(profileID, walletID int64) (core.WalletAudit, error)
	all      []core.WalletAudit
	allErr   error
}

func (f *fakeAuditor) AuditWallet(ctx context.Context, profileID, walletID int64) (core.WalletAudit, error) {
	f.mu.Lock()
	f.audited = append(f.audited, [2]int64{profileID, walletID})
	f.mu.Unlock()
	if f.walletFn != nil {
		return f.walletFn(profileID, walletID)
	}
	return core.WalletAudit{WalletID: walletID, ProfileID: profileID}, nil
}

func (f *fakeAuditor) AuditAll(ctx context.Context) ([]core.WalletAudit, error) {
	f.mu.Lock()
	f.sweeps++
	f.mu.Unlock()
	return f.all, f.allErr
}

func (f *fakeAuditor) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func TestAuditWorker_HandleLedgerEvent(t *testing.T) {
	walletID := int64(3)

	tests := []struct {
		name        string
		msg         *amqp.LedgerEventMessage
		walletErr   error
		wantErr     bool
		wantAudited int
	}{
		{
			name:        "wallet event is audited",
			msg:         &amqp.LedgerEventMessage{Type: amqp.EventTransactionRecorded, ProfileID: 1, WalletID: &walletID},
			wantAudited: 1,
		},
		{
			name: "wallet-less event is skipped",
			msg:  &amqp.LedgerEventMessage{Type: amqp.EventTransactionDeleted, ProfileID: 1},
		},
		{
			name:        "unknown wallet is acknowledged",
			msg:         &amqp.LedgerEventMessage{Type: amqp.EventTransactionRecorded, ProfileID: 2, WalletID: &walletID},
			walletErr:   &core.NotFoundError{Resource: "wallet", ID: walletID},
			wantAudited: 1,
		},
		{
			name:        "store failure is returned for requeue",
			msg:         &amqp.LedgerEventMessage{Type: amqp.EventTransactionRecorded, ProfileID: 1, WalletID: &walletID},
			walletErr:   &core.StoreError{Op: "audit wallet", Err: errors.New("disk I/O error")},
			wantErr:     true,
			wantAudited: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := &fakeAuditor{walletFn: func(p, w int64) (core.WalletAudit, error) {
				return core.WalletAudit{WalletID: w, ProfileID: p}, tt.walletErr
			}}
			w := NewAuditWorker(auditor, time.Hour)

			err := w.HandleLedgerEvent(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleLedgerEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(auditor.audited) != tt.wantAudited {
				t.Errorf("audited %d wallets, want %d", len(auditor.audited), tt.wantAudited)
			}
		})
	}
}

func TestAuditWorker_Sweep(t *testing.T) {
	auditor := &fakeAuditor{all: []core.WalletAudit{
		{WalletID: 1},
		{WalletID: 2, Drift: core.Money{Cents: 500}},
		{WalletID: 3, Drift: core.Money{Cents: -1}},
	}}
	w := NewAuditWorker(auditor, time.Hour)

	drifted, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if drifted != 2 {
		t.Errorf("drifted = %d, want 2", drifted)
	}

	auditor.allErr = errors.New("boom")
	if _, err := w.Sweep(context.Background()); err == nil {
		t.Error("Sweep() should surface auditor errors")
	}
}

func TestAuditWorker_RunPeriodic(t *testing.T) {
	auditor := &fakeAuditor{}
	w := NewAuditWorker(auditor, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for auditor.sweepCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop after cancel")
	}
	if auditor.sweepCount() < 3 {
		t.Errorf("sweeps = %d, want at least 3", auditor.sweepCount())
	}
}
