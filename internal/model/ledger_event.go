package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger event types
const (
	EventTypePurchase     = "purchase"
	EventTypeRefund       = "refund"
	EventTypeChargeback   = "chargeback"
	EventTypeCancellation = "cancellation"
)

// TransactionIDPattern extracts the transaction id from a ledger event id of
// the form "<provider>_<TRANSACTION_ID>_<EVENT_SUFFIX>". Group 1 is the id.
// The same expression is evaluated by Postgres (POSIX ARE) and Go (RE2), so it
// must stay within their common syntax.
const TransactionIDPattern = `^[a-z][a-z0-9]*_([A-Za-z0-9][A-Za-z0-9-]*)_[A-Z]+(_[A-Z]+)*$`

// LedgerEvent is an append-only financial event. BusinessDate is the only date
// used for filtering; OccurredAt decides which event of a transaction wins.
type LedgerEvent struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_project_date,priority:1" json:"project_id"`
	EventID      string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"event_id"`
	Provider     string          `gorm:"type:varchar(50);not null" json:"provider"`
	EventType    string          `gorm:"type:varchar(20);not null;index" json:"event_type"`
	GrossAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"gross_amount"`
	NetAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"net_amount"` // zero means unset
	Currency     string          `gorm:"type:varchar(3)" json:"currency"`
	BusinessDate time.Time       `gorm:"type:date;not null;index:idx_ledger_project_date,priority:2" json:"business_date"`
	OccurredAt   time.Time       `gorm:"not null" json:"occurred_at"`
	AccountID    string          `gorm:"type:varchar(100);index" json:"account_id"`
	RawPayload   json.RawMessage `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (LedgerEvent) TableName() string {
	return "ledger_events"
}

// IsPurchaseEquivalent reports whether the event type counts as a sale.
func IsPurchaseEquivalent(eventType string) bool {
	return eventType == EventTypePurchase
}
