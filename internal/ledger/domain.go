package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// Kind discriminates the legs a transaction can carry.
type Kind string

const (
	// KindSell is merchant gives metal to the customer.
	KindSell Kind = "sell"
	// KindPurchase is merchant receives metal from the customer.
	KindPurchase Kind = "purchase"
	// KindMoney is a pure cash movement.
	KindMoney Kind = "money"
)

// MoneyDirection tells which way cash moved on a money leg.
type MoneyDirection string

const (
	// MoneyGive is merchant handing cash out.
	MoneyGive MoneyDirection = "give"
	// MoneyReceive is merchant taking cash in.
	MoneyReceive MoneyDirection = "receive"
)

// Settlement is the effect branch chosen when the transaction was saved. It
// is persisted so delete/restore replay the exact branch the create used.
type Settlement string

const (
	SettlementMoney Settlement = "money"
	SettlementMetal Settlement = "metal"
	SettlementMixed Settlement = "mixed"
)

// MetalLeg carries the fields that only exist on sell/purchase entries.
type MetalLeg struct {
	Item       bullion.Item
	Weight     decimal.Decimal
	Price      decimal.Decimal
	Touch      decimal.Decimal
	Cut        decimal.Decimal
	PureWeight decimal.Decimal
	MetalOnly  bool
	StockLotID string
	Subtotal   decimal.Decimal
}

// MoneyLeg carries the fields that only exist on money entries.
type MoneyLeg struct {
	Direction MoneyDirection
	Amount    decimal.Decimal
}

// Entry is one leg of a transaction. Exactly one of Metal/Money is set,
// matching Kind.
type Entry struct {
	ID            string
	Kind          Kind
	Metal         *MetalLeg
	Money         *MoneyLeg
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// IsMetal reports whether the entry is a sell/purchase leg.
func (e Entry) IsMetal() bool {
	return e.Kind == KindSell || e.Kind == KindPurchase
}

// Transaction is the persisted header plus its ordered entries. Total and
// AmountPaid are always recomputed from the entry set at save time.
type Transaction struct {
	ID            string
	CustomerID    string
	CustomerName  string
	Date          time.Time
	Entries       []Entry
	DiscountExtra decimal.Decimal
	Total         decimal.Decimal
	AmountPaid    decimal.Decimal
	Settlement    Settlement
	Note          string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
	DeletedOn     *time.Time
}

// Deleted reports whether the transaction sits in the recycle bin.
func (t *Transaction) Deleted() bool {
	return t != nil && t.DeletedOn != nil
}

// Error taxonomy. Multi-step mutations run inside one atomic attempt; any
// of these aborts and rolls back the whole attempt.
var (
	// ErrNotFound indicates a missing transaction.
	ErrNotFound = errors.New("ledger: transaction not found")
	// ErrValidation indicates invalid input for a mutation.
	ErrValidation = errors.New("ledger: validation failed")
	// ErrInventoryConflict indicates insufficient or already-consumed stock.
	ErrInventoryConflict = errors.New("ledger: stock conflict")
	// ErrEditLocked indicates the transaction is locked from destructive edits.
	ErrEditLocked = errors.New("ledger: transaction is edit-locked")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func inventoryConflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInventoryConflict, fmt.Sprintf(format, args...))
}

// validate checks the tagged-union shape of an entry.
func (e Entry) validate() error {
	switch e.Kind {
	case KindSell, KindPurchase:
		if e.Metal == nil || e.Money != nil {
			return validationf("entry %s: %s entries carry exactly a metal leg", e.ID, e.Kind)
		}
		if !e.Metal.Item.Valid() {
			return validationf("entry %s: unknown item type %q", e.ID, e.Metal.Item)
		}
		if !e.Metal.Weight.IsPositive() {
			return validationf("entry %s: weight must be positive", e.ID)
		}
		if e.Metal.Cut.IsPositive() && e.Metal.Item != bullion.ItemRani {
			return validationf("entry %s: cut applies only to rani", e.ID)
		}
		if !e.Metal.MetalOnly && e.Metal.Price.IsNegative() {
			return validationf("entry %s: price must not be negative", e.ID)
		}
	case KindMoney:
		if e.Money == nil || e.Metal != nil {
			return validationf("entry %s: money entries carry exactly a money leg", e.ID)
		}
		if e.Money.Direction != MoneyGive && e.Money.Direction != MoneyReceive {
			return validationf("entry %s: unknown money direction %q", e.ID, e.Money.Direction)
		}
		if !e.Money.Amount.IsPositive() {
			return validationf("entry %s: amount must be positive", e.ID)
		}
	default:
		return validationf("entry %s: unknown kind %q", e.ID, e.Kind)
	}
	return nil
}
