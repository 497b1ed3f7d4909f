package amqp

import (
	"encoding/json"
	"time"

	"cashflow/internal/core"
)

const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionDeleted  = "transaction.deleted"
)

// LedgerEventMessage announces a committed ledger mutation. Consumers treat
// it as a hint and re-read the store; the message is never the source of truth.
type LedgerEventMessage struct {
	Type          string    `json:"type"`
	TransactionID int64     `json:"transaction_id"`
	ProfileID     int64     `json:"profile_id"`
	WalletID      *int64    `json:"wallet_id,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds an event for a transaction that was just
// recorded or deleted.
func NewLedgerEventMessage(eventType string, t core.Transaction) *LedgerEventMessage {
	msg := &LedgerEventMessage{
		Type:          eventType,
		TransactionID: t.ID,
		ProfileID:     t.ProfileID,
		AmountCents:   t.Amount.Cents,
		Timestamp:     time.Now(),
	}
	if t.WalletID != nil {
		id := *t.WalletID
		msg.WalletID = &id
	}
	return msg
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
