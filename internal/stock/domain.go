package stock

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// Lot is one purchased rani/rupu parcel. Selling marks it sold; it is
// physically removed only when its originating purchase entry is reversed.
type Lot struct {
	StockID   string
	Item      bullion.Item
	Weight    decimal.Decimal
	Touch     decimal.Decimal
	IsSold    bool
	CreatedAt time.Time
}

var (
	// ErrNotFound indicates a missing lot row.
	ErrNotFound = errors.New("stock: lot not found")
	// ErrNoUnsoldLot indicates no unsold lot of the requested kind exists.
	ErrNoUnsoldLot = errors.New("stock: no unsold lot available")
	// ErrNotLotItem indicates an item type that is not tracked as stock.
	ErrNotLotItem = errors.New("stock: item is not lot-tracked")
)
