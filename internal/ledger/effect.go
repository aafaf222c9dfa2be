package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
	"github.com/sarafa-ledger/sarafa-ledger/internal/customer"
)

// The whole update/delete/restore symmetry hangs on Compute being pure: the
// same function runs forward for create and restore, negated for delete, and
// reverse-then-forward for update. No call site re-derives the formula.

// StockOpKind discriminates forward stock operations.
type StockOpKind string

const (
	// StockOpAdd is a purchase entry creating (or re-creating) a lot.
	StockOpAdd StockOpKind = "add"
	// StockOpConsume is a sell entry marking a lot sold.
	StockOpConsume StockOpKind = "consume"
)

// StockOp is one forward stock mutation implied by an entry. Reversal swaps
// add for remove and consume for unmark.
type StockOp struct {
	Kind    StockOpKind
	EntryID string
	LotID   string
	Item    bullion.Item
	Weight  decimal.Decimal
	Touch   decimal.Decimal
}

// Effect is everything a transaction does to derived state when applied
// forward. Negate gives the exact reversal.
type Effect struct {
	Cash  decimal.Decimal
	Metal map[bullion.Metal]decimal.Decimal
	Stock []StockOp
}

// Negate flips the cash and metal deltas. Stock ops keep their forward
// meaning; callers reverse them structurally (add→remove, consume→unmark).
func (e Effect) Negate() Effect {
	out := Effect{Cash: e.Cash.Neg(), Stock: e.Stock}
	if len(e.Metal) > 0 {
		out.Metal = make(map[bullion.Metal]decimal.Decimal, len(e.Metal))
		for m, d := range e.Metal {
			out.Metal[m] = d.Neg()
		}
	}
	return out
}

// Classify picks the effect branch for an entry set: money when every entry
// is a cash leg, metal when every metal entry is metal-only and no cash legs
// exist, mixed otherwise.
func Classify(entries []Entry) Settlement {
	money, metalOnly, priced := 0, 0, 0
	for _, e := range entries {
		switch {
		case e.Kind == KindMoney:
			money++
		case e.Metal != nil && e.Metal.MetalOnly:
			metalOnly++
		default:
			priced++
		}
	}
	switch {
	case money > 0 && metalOnly == 0 && priced == 0:
		return SettlementMoney
	case metalOnly > 0 && money == 0 && priced == 0:
		return SettlementMetal
	default:
		return SettlementMixed
	}
}

// signedMoney sums money legs: receive positive, give negative.
func signedMoney(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.Kind != KindMoney || e.Money == nil {
			continue
		}
		if e.Money.Direction == MoneyReceive {
			sum = sum.Add(e.Money.Amount)
		} else {
			sum = sum.Sub(e.Money.Amount)
		}
	}
	return sum
}

// totalOf sums entry subtotals: metal legs contribute their cash value (zero
// when metal-only), money legs their signed amount.
func totalOf(entries []Entry) decimal.Decimal {
	total := signedMoney(entries)
	for _, e := range entries {
		if e.IsMetal() && e.Metal != nil {
			total = total.Add(e.Metal.Subtotal)
		}
	}
	return total
}

// deltaWeight is the quantity a metal-only entry moves on its metal ledger:
// the derived pure weight for rani/rupu, the raw weight otherwise.
func deltaWeight(leg *MetalLeg) decimal.Decimal {
	if leg.Item.IsLot() {
		return leg.PureWeight
	}
	return leg.Weight
}

// MetalDeltas computes the signed per-metal deltas carried by the metal-only
// entries: positive for a purchase (merchant receives metal, customer debt
// shrinks), negative for a sell.
func MetalDeltas(entries []Entry) (map[bullion.Metal]decimal.Decimal, error) {
	deltas := make(map[bullion.Metal]decimal.Decimal)
	for _, e := range entries {
		if !e.IsMetal() || e.Metal == nil || !e.Metal.MetalOnly {
			continue
		}
		metal, err := bullion.Normalize(e.Metal.Item, e.Metal.Cut)
		if err != nil {
			return nil, err
		}
		w := deltaWeight(e.Metal)
		if e.Kind == KindSell {
			w = w.Neg()
		}
		deltas[metal] = deltas[metal].Add(w)
	}
	return deltas, nil
}

// stockOps lists the forward stock mutations implied by rani/rupu entries.
func stockOps(entries []Entry) []StockOp {
	var ops []StockOp
	for _, e := range entries {
		if !e.IsMetal() || e.Metal == nil || !e.Metal.Item.IsLot() {
			continue
		}
		op := StockOp{
			EntryID: e.ID,
			LotID:   e.Metal.StockLotID,
			Item:    e.Metal.Item,
			Weight:  e.Metal.Weight,
			Touch:   e.Metal.Touch,
		}
		if e.Kind == KindPurchase {
			op.Kind = StockOpAdd
		} else {
			op.Kind = StockOpConsume
		}
		ops = append(ops, op)
	}
	return ops
}

// Compute derives the full forward effect of a transaction from its stored
// fields. The settlement branch persisted at save time is authoritative;
// Classify is only consulted for unsaved input.
func Compute(t Transaction) (Effect, error) {
	settlement := t.Settlement
	if settlement == "" {
		settlement = Classify(t.Entries)
	}

	eff := Effect{Stock: stockOps(t.Entries)}
	switch settlement {
	case SettlementMoney:
		eff.Cash = t.AmountPaid
	case SettlementMetal:
		eff.Cash = decimal.Zero
	default:
		eff.Cash = t.AmountPaid.Sub(t.Total).Add(t.DiscountExtra)
	}

	deltas, err := MetalDeltas(t.Entries)
	if err != nil {
		return Effect{}, err
	}
	if len(deltas) > 0 {
		eff.Metal = deltas
	}

	// Internal bookkeeping rows never accrue debt or credit.
	if customer.IsZeroEffect(t.CustomerName) {
		eff.Cash = decimal.Zero
	}
	return eff, nil
}
