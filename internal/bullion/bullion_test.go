package bullion

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		item Item
		cut  decimal.Decimal
		want Metal
	}{
		{"rani with cut converts to gold999", ItemRani, decimal.NewFromInt(2), MetalGold999},
		{"rani without cut converts to gold995", ItemRani, decimal.Zero, MetalGold995},
		{"rupu converts to silver", ItemRupu, decimal.Zero, MetalSilver},
		{"gold999 maps to itself", ItemGold999, decimal.Zero, MetalGold999},
		{"gold995 maps to itself", ItemGold995, decimal.Zero, MetalGold995},
		{"silver maps to itself", ItemSilver, decimal.Zero, MetalSilver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.item, tc.cut)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := Normalize(Item("copper"), decimal.Zero)
	require.ErrorIs(t, err, ErrUnknownItem)
}

func TestPureWeight(t *testing.T) {
	// 10g rani at touch 92 with cut 2 => 10 * (92-2) / 100 = 9.0
	got := PureWeight(ItemRani, decimal.NewFromInt(10), decimal.NewFromInt(92), decimal.NewFromInt(2))
	require.True(t, got.Equal(decimal.NewFromFloat(9.0)), "got %s", got)

	// no touch: raw weight is already pure
	got = PureWeight(ItemGold999, decimal.NewFromFloat(12.345), decimal.Zero, decimal.Zero)
	require.True(t, got.Equal(decimal.NewFromFloat(12.345)))

	// rupu uses touch without cut
	got = PureWeight(ItemRupu, decimal.NewFromInt(100), decimal.NewFromInt(80), decimal.Zero)
	require.True(t, got.Equal(decimal.NewFromInt(80)))

	// cut is ignored for non-rani items
	got = PureWeight(ItemRupu, decimal.NewFromInt(100), decimal.NewFromInt(80), decimal.NewFromInt(5))
	require.True(t, got.Equal(decimal.NewFromInt(80)))
}
