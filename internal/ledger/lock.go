package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// LockPolicy controls when a transaction refuses destructive edits. The
// settlement threshold is policy, not business law: the source systems
// disagreed on it, so it stays configurable.
type LockPolicy struct {
	// SettleAfter is how old a fully settled transaction must be before it
	// locks. Zero disables the settled lock entirely.
	SettleAfter time.Duration
}

// EditLocked reports whether the transaction may not be edited or deleted.
//
// Two independent locks apply:
//   - rate-cut lock: any metal entry dated before the customer's recorded
//     rate-cut date for that metal ledger;
//   - settled lock: a priced metal transaction whose total is fully paid and
//     that is older than the policy threshold. Transactions carrying a
//     metal-only leg, and pure cash movements, are exempt.
func EditLocked(t Transaction, rateCuts map[bullion.Metal]time.Time, now time.Time, p LockPolicy) bool {
	priced := 0
	metalOnly := 0
	for _, e := range t.Entries {
		if !e.IsMetal() || e.Metal == nil {
			continue
		}
		metal, err := bullion.Normalize(e.Metal.Item, e.Metal.Cut)
		if err != nil {
			continue
		}
		if lockDate, ok := rateCuts[metal]; ok && t.Date.Before(lockDate) {
			return true
		}
		if e.Metal.MetalOnly {
			metalOnly++
		} else {
			priced++
		}
	}

	if metalOnly > 0 || priced == 0 {
		return false
	}
	if p.SettleAfter <= 0 || now.Sub(t.CreatedAt) < p.SettleAfter {
		return false
	}
	return t.Total.Abs().Sub(t.AmountPaid).LessThanOrEqual(decimal.Zero)
}
