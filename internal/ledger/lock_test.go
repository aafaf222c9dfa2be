package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

func TestEditLockedRateCut(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lockDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cuts := map[bullion.Metal]time.Time{bullion.MetalGold999: lockDate}

	before := Transaction{
		Date:    lockDate.AddDate(0, 0, -5),
		Entries: []Entry{metalOnlyEntry(KindPurchase, bullion.ItemGold999, "5", "0", "0")},
	}
	require.True(t, EditLocked(before, cuts, now, LockPolicy{}))

	after := before
	after.Date = lockDate.AddDate(0, 0, 1)
	require.False(t, EditLocked(after, cuts, now, LockPolicy{}))

	// the cut is per metal ledger: silver entries are untouched
	silver := Transaction{
		Date:    lockDate.AddDate(0, 0, -5),
		Entries: []Entry{metalOnlyEntry(KindSell, bullion.ItemRupu, "50", "0", "0")},
	}
	require.False(t, EditLocked(silver, cuts, now, LockPolicy{}))
}

func TestEditLockedRateCutNormalizesRani(t *testing.T) {
	now := time.Now()
	lockDate := now.AddDate(0, 0, -1)
	cuts := map[bullion.Metal]time.Time{bullion.MetalGold999: lockDate}

	// rani with a cut lands on the gold999 ledger
	tx := Transaction{
		Date:    lockDate.AddDate(0, 0, -3),
		Entries: []Entry{metalOnlyEntry(KindPurchase, bullion.ItemRani, "10", "92", "2")},
	}
	require.True(t, EditLocked(tx, cuts, now, LockPolicy{}))
}

func TestEditLockedSettled(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	policy := LockPolicy{SettleAfter: 24 * time.Hour}

	settled := Transaction{
		Date:       now.AddDate(0, 0, -3),
		CreatedAt:  now.AddDate(0, 0, -3),
		Entries:    []Entry{pricedSell(bullion.ItemGold999, "10", "100", "0", "0")},
		Total:      dec("1000"),
		AmountPaid: dec("1000"),
	}
	require.True(t, EditLocked(settled, nil, now, policy))

	unpaid := settled
	unpaid.AmountPaid = dec("700")
	require.False(t, EditLocked(unpaid, nil, now, policy))

	fresh := settled
	fresh.CreatedAt = now.Add(-time.Hour)
	require.False(t, EditLocked(fresh, nil, now, policy))

	require.False(t, EditLocked(settled, nil, now, LockPolicy{}), "zero threshold disables the settled lock")
}

func TestEditLockedMetalOnlyExempt(t *testing.T) {
	now := time.Now()
	policy := LockPolicy{SettleAfter: 24 * time.Hour}

	tx := Transaction{
		Date:      now.AddDate(0, 0, -10),
		CreatedAt: now.AddDate(0, 0, -10),
		Entries: []Entry{
			pricedSell(bullion.ItemGold999, "10", "100", "0", "0"),
			metalOnlyEntry(KindPurchase, bullion.ItemRupu, "100", "0", "0"),
		},
		Total:      dec("1000"),
		AmountPaid: dec("1000"),
	}
	require.False(t, EditLocked(tx, nil, now, policy))
}

func TestEditLockedMoneyOnlyExempt(t *testing.T) {
	now := time.Now()
	policy := LockPolicy{SettleAfter: 24 * time.Hour}

	tx := Transaction{
		Date:       now.AddDate(0, 0, -10),
		CreatedAt:  now.AddDate(0, 0, -10),
		Entries:    []Entry{moneyEntry(MoneyReceive, "500")},
		Total:      dec("500"),
		AmountPaid: dec("500"),
	}
	require.False(t, EditLocked(tx, nil, now, policy))
}
