// Package bullion defines the metal taxonomy shared by the ledger, the
// stock book and customer balances.
package bullion

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Metal identifies a balance ledger a customer can owe metal against.
type Metal string

const (
	MetalGold999 Metal = "gold999"
	MetalGold995 Metal = "gold995"
	MetalSilver  Metal = "silver"
)

// Metals lists every balance ledger in display order.
var Metals = []Metal{MetalGold999, MetalGold995, MetalSilver}

// Item is the tradable item type carried on a transaction entry.
type Item string

const (
	ItemGold999 Item = "gold999"
	ItemGold995 Item = "gold995"
	ItemRani    Item = "rani"
	ItemSilver  Item = "silver"
	ItemRupu    Item = "rupu"
)

// ErrUnknownItem indicates an item type outside the fixed taxonomy.
var ErrUnknownItem = errors.New("bullion: unknown item type")

// Valid reports whether the item belongs to the taxonomy.
func (i Item) Valid() bool {
	switch i {
	case ItemGold999, ItemGold995, ItemRani, ItemSilver, ItemRupu:
		return true
	}
	return false
}

// IsLot reports whether the item is tracked as a FIFO stock lot.
func (i Item) IsLot() bool {
	return i == ItemRani || i == ItemRupu
}

// Normalize maps an item to the metal balance it settles against. Rani
// converts to gold999 when a cut is applied, gold995 otherwise; rupu always
// converts to silver.
func Normalize(item Item, cut decimal.Decimal) (Metal, error) {
	switch item {
	case ItemGold999:
		return MetalGold999, nil
	case ItemGold995:
		return MetalGold995, nil
	case ItemSilver:
		return MetalSilver, nil
	case ItemRani:
		if cut.IsPositive() {
			return MetalGold999, nil
		}
		return MetalGold995, nil
	case ItemRupu:
		return MetalSilver, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownItem, item)
}

// weights are kept at milligram precision
const weightScale = 3

var hundred = decimal.NewFromInt(100)

// PureWeight derives the pure metal content of an entry. With no touch the
// raw weight is already pure. Cut is a fineness deduction applied on top of
// touch and only ever set for rani.
func PureWeight(item Item, weight, touch, cut decimal.Decimal) decimal.Decimal {
	if touch.IsZero() {
		return weight.Round(weightScale)
	}
	fineness := touch
	if item == ItemRani && cut.IsPositive() {
		fineness = touch.Sub(cut)
	}
	return weight.Mul(fineness).DivRound(hundred, weightScale)
}
