package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricedSell(item bullion.Item, weight, price, touch, cut string) Entry {
	leg := &MetalLeg{
		Item:   item,
		Weight: dec(weight),
		Price:  dec(price),
		Touch:  dec(touch),
		Cut:    dec(cut),
	}
	leg.PureWeight = bullion.PureWeight(leg.Item, leg.Weight, leg.Touch, leg.Cut)
	leg.Subtotal = leg.PureWeight.Mul(leg.Price).Round(moneyScale)
	return Entry{ID: "e1", Kind: KindSell, Metal: leg}
}

func metalOnlyEntry(kind Kind, item bullion.Item, weight, touch, cut string) Entry {
	leg := &MetalLeg{
		Item:      item,
		Weight:    dec(weight),
		Touch:     dec(touch),
		Cut:       dec(cut),
		MetalOnly: true,
	}
	leg.PureWeight = bullion.PureWeight(leg.Item, leg.Weight, leg.Touch, leg.Cut)
	leg.Subtotal = decimal.Zero
	return Entry{ID: "e2", Kind: kind, Metal: leg}
}

func moneyEntry(dir MoneyDirection, amount string) Entry {
	return Entry{ID: "e3", Kind: KindMoney, Money: &MoneyLeg{Direction: dir, Amount: dec(amount)}}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    Settlement
	}{
		{"only money legs", []Entry{moneyEntry(MoneyReceive, "500")}, SettlementMoney},
		{"only metal-only legs", []Entry{metalOnlyEntry(KindPurchase, bullion.ItemRani, "10", "92", "2")}, SettlementMetal},
		{"priced sell", []Entry{pricedSell(bullion.ItemGold999, "10", "100", "0", "0")}, SettlementMixed},
		{"money plus metal-only", []Entry{
			moneyEntry(MoneyGive, "200"),
			metalOnlyEntry(KindSell, bullion.ItemRupu, "50", "0", "0"),
		}, SettlementMixed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.entries))
		})
	}
}

func TestComputeMixedPartialPayment(t *testing.T) {
	// priced sell worth 1000, customer pays 700: they owe 300
	tx := Transaction{
		CustomerID: "c1",
		Entries:    []Entry{pricedSell(bullion.ItemGold999, "10", "100", "0", "0")},
		Total:      dec("1000"),
		AmountPaid: dec("700"),
		Settlement: SettlementMixed,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.True(t, eff.Cash.Equal(dec("-300")), "got %s", eff.Cash)
	require.Empty(t, eff.Metal)
}

func TestComputeDiscountExtra(t *testing.T) {
	tx := Transaction{
		Entries:       []Entry{pricedSell(bullion.ItemGold999, "10", "100", "0", "0")},
		Total:         dec("1000"),
		AmountPaid:    dec("950"),
		DiscountExtra: dec("50"),
		Settlement:    SettlementMixed,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.True(t, eff.Cash.IsZero(), "discount should settle the remainder, got %s", eff.Cash)
}

func TestComputeMoneySettlement(t *testing.T) {
	tx := Transaction{
		Entries:    []Entry{moneyEntry(MoneyReceive, "500")},
		AmountPaid: dec("500"),
		Settlement: SettlementMoney,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.True(t, eff.Cash.Equal(dec("500")))
}

func TestComputeMetalOnlyRani(t *testing.T) {
	// 10g rani, touch 92, cut 2 → 9.0g fine gold999, sell so merchant gives
	tx := Transaction{
		Entries:    []Entry{metalOnlyEntry(KindSell, bullion.ItemRani, "10", "92", "2")},
		Settlement: SettlementMetal,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.True(t, eff.Cash.IsZero())
	require.True(t, eff.Metal[bullion.MetalGold999].Equal(dec("-9")), "got %s", eff.Metal[bullion.MetalGold999])
}

func TestComputeMetalOnlyPurchaseIsPositive(t *testing.T) {
	tx := Transaction{
		Entries:    []Entry{metalOnlyEntry(KindPurchase, bullion.ItemGold995, "5.5", "0", "0")},
		Settlement: SettlementMetal,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.True(t, eff.Metal[bullion.MetalGold995].Equal(dec("5.5")))
}

func TestComputeZeroEffectCustomer(t *testing.T) {
	tx := Transaction{
		CustomerName: "Adjust",
		Entries:      []Entry{pricedSell(bullion.ItemGold999, "10", "100", "0", "0")},
		Total:        dec("1000"),
		AmountPaid:   dec("0"),
		Settlement:   SettlementMixed,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.True(t, eff.Cash.IsZero(), "bookkeeping rows must not move cash, got %s", eff.Cash)
}

func TestComputeMixedKeepsMetalOnlyDeltas(t *testing.T) {
	tx := Transaction{
		Entries: []Entry{
			pricedSell(bullion.ItemGold999, "10", "100", "0", "0"),
			metalOnlyEntry(KindPurchase, bullion.ItemRupu, "100", "0", "0"),
		},
		Total:      dec("1000"),
		AmountPaid: dec("1000"),
		Settlement: SettlementMixed,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.True(t, eff.Cash.IsZero())
	require.True(t, eff.Metal[bullion.MetalSilver].Equal(dec("100")))
}

func TestEffectNegateRoundTrips(t *testing.T) {
	tx := Transaction{
		Entries: []Entry{
			pricedSell(bullion.ItemRani, "10", "100", "92", "2"),
			metalOnlyEntry(KindPurchase, bullion.ItemRupu, "100", "0", "0"),
		},
		Total:      dec("900"),
		AmountPaid: dec("400"),
		Settlement: SettlementMixed,
	}
	eff, err := Compute(tx)
	require.NoError(t, err)

	back := eff.Negate().Negate()
	require.True(t, back.Cash.Equal(eff.Cash))
	for m, d := range eff.Metal {
		require.True(t, back.Metal[m].Equal(d))
	}
}

func TestStockOpsOnlyForLotItems(t *testing.T) {
	tx := Transaction{
		Entries: []Entry{
			pricedSell(bullion.ItemGold999, "10", "100", "0", "0"),
			metalOnlyEntry(KindPurchase, bullion.ItemRani, "10", "92", "2"),
			metalOnlyEntry(KindSell, bullion.ItemRupu, "50", "0", "0"),
		},
	}
	eff, err := Compute(tx)
	require.NoError(t, err)
	require.Len(t, eff.Stock, 2)
	require.Equal(t, StockOpAdd, eff.Stock[0].Kind)
	require.Equal(t, StockOpConsume, eff.Stock[1].Kind)
}

func TestTotalOfSumsSubtotalsAndMoney(t *testing.T) {
	entries := []Entry{
		pricedSell(bullion.ItemGold999, "10", "100", "0", "0"),
		moneyEntry(MoneyGive, "200"),
	}
	require.True(t, totalOf(entries).Equal(dec("800")))
}
