package customer

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// Customer is one counterparty of the merchant. Balances are signed from the
// merchant's point of view: negative cash means the customer owes money,
// negative metal means the customer owes metal.
type Customer struct {
	ID                string
	Name              string
	CashBalance       decimal.Decimal
	MetalBalances     map[bullion.Metal]decimal.Decimal
	LastTransactionAt time.Time
}

// RateCut records a lock date per metal: transactions dated before it may
// not be destructively edited because the customer's rate was settled.
type RateCut struct {
	CustomerID   string
	Metal        bullion.Metal
	LockedBefore time.Time
}

// ErrNotFound indicates a missing customer row.
var ErrNotFound = errors.New("customer: not found")

// Bookkeeping rows are posted against these reserved names. They never
// accrue debt or credit.
const (
	NameAdjust  = "adjust"
	NameExpense = "expense(kharch)"
)

// IsZeroEffect reports whether transactions for this customer name must
// never move the cash balance.
func IsZeroEffect(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == NameAdjust || n == NameExpense
}
