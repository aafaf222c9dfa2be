// Package payments writes the human-readable cash-flow history tied to
// ledger transactions. The ledger treats it as an append-only collaborator:
// one record per net cash change, removed or marked when the owning
// transaction is purged or soft-deleted.
package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one cash-flow record.
type Entry struct {
	ID            string
	TransactionID string
	Amount        decimal.Decimal
	NetAmount     decimal.Decimal
	Timestamp     time.Time
	DeletedOn     *time.Time
}
