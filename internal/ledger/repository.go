package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
	"github.com/sarafa-ledger/sarafa-ledger/internal/customer"
	"github.com/sarafa-ledger/sarafa-ledger/internal/payments"
	"github.com/sarafa-ledger/sarafa-ledger/internal/stock"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetByID(ctx context.Context, id string) (*Transaction, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Transaction, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]Transaction, error)
	ListRecent(ctx context.Context, limit int, excludeCustomerName string) ([]Transaction, error)
	ListDeleted(ctx context.Context) ([]Transaction, error)
	ListExpiredIDs(ctx context.Context, cutoff time.Time) ([]string, error)
}

// TxRepository exposes every storage operation a ledger mutation may need
// inside one atomic attempt: the transaction rows themselves plus the
// balance, stock and payment side effects. The boundary is the only
// mutual-exclusion unit the system has.
type TxRepository interface {
	GetTransactionForUpdate(ctx context.Context, id string) (*Transaction, error)
	InsertTransaction(ctx context.Context, t *Transaction) error
	UpdateHeader(ctx context.Context, t *Transaction) error
	InsertEntries(ctx context.Context, transactionID string, entries []Entry) error
	DeleteEntries(ctx context.Context, transactionID string) error
	SetDeletedOn(ctx context.Context, transactionID string, on *time.Time) error
	DeleteTransaction(ctx context.Context, transactionID string) error

	GetCustomerForUpdate(ctx context.Context, id string) (*customer.Customer, error)
	ApplyCashDelta(ctx context.Context, customerID string, delta decimal.Decimal, at time.Time) error
	ApplyMetalDelta(ctx context.Context, customerID string, metal bullion.Metal, delta decimal.Decimal, at time.Time) error

	InsertLot(ctx context.Context, lot stock.Lot) error
	RestoreLot(ctx context.Context, lot stock.Lot, at time.Time) error
	UpdateLot(ctx context.Context, lot stock.Lot) error
	RemoveLot(ctx context.Context, stockID string) error
	SetLotSold(ctx context.Context, stockID string, sold bool) error
	GetLot(ctx context.Context, stockID string) (*stock.Lot, error)
	OldestUnsoldLot(ctx context.Context, item bullion.Item) (*stock.Lot, error)

	RecordPayment(ctx context.Context, e payments.Entry) error
	DeletePaymentsFor(ctx context.Context, transactionID string) error
	MarkPaymentsDeleted(ctx context.Context, transactionID string, on time.Time) error
	ClearPaymentsDeleted(ctx context.Context, transactionID string) error
}
