package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
	"github.com/sarafa-ledger/sarafa-ledger/internal/customer"
	"github.com/sarafa-ledger/sarafa-ledger/internal/payments"
	"github.com/sarafa-ledger/sarafa-ledger/internal/shared"
	"github.com/sarafa-ledger/sarafa-ledger/internal/stock"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RateCutPort reads the per-metal rate-cut lock dates of a customer.
type RateCutPort interface {
	RateCuts(ctx context.Context, customerID string) (map[bullion.Metal]time.Time, error)
}

// RecentCachePort caches the recent-transactions view between mutations.
type RecentCachePort interface {
	Get(ctx context.Context, limit int, excludeCustomerName string) ([]Transaction, bool)
	Set(ctx context.Context, limit int, excludeCustomerName string, txs []Transaction)
	Invalidate(ctx context.Context)
}

// ServiceConfig groups policy settings.
type ServiceConfig struct {
	RetentionDays int
	Lock          LockPolicy
	// AllowUnmatchedSell lets a rani/rupu sell proceed with no unsold lot on
	// file instead of failing with a stock conflict.
	AllowUnmatchedSell bool
}

// Service orchestrates every transaction mutation. All writes happen inside
// one repository transaction per operation; a failure at any step rolls the
// whole attempt back.
type Service struct {
	repo   RepositoryPort
	cuts   RateCutPort
	audit  AuditPort
	cache  RecentCachePort
	guard  *shared.SaveGuard
	logger *slog.Logger
	cfg    ServiceConfig
	now    func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort, cuts RateCutPort, audit AuditPort, cache RecentCachePort, guard *shared.SaveGuard, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return &Service{
		repo:   repo,
		cuts:   cuts,
		audit:  audit,
		cache:  cache,
		guard:  guard,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// EntryInput is one requested leg. Kind decides which fields are read.
type EntryInput struct {
	Kind       Kind
	Item       bullion.Item
	Weight     decimal.Decimal
	Price      decimal.Decimal
	Touch      decimal.Decimal
	Cut        decimal.Decimal
	MetalOnly  bool
	StockLotID string
	Direction  MoneyDirection
	Amount     decimal.Decimal
}

// CreateInput is a create request.
type CreateInput struct {
	CustomerID     string
	Entries        []EntryInput
	ReceivedAmount decimal.Decimal
	DiscountExtra  decimal.Decimal
	Date           time.Time
	Note           string
}

// UpdateInput is an update request. A nil Date preserves the original date.
type UpdateInput struct {
	Entries        []EntryInput
	ReceivedAmount decimal.Decimal
	DiscountExtra  decimal.Decimal
	Date           *time.Time
	Note           string
}

const moneyScale = 2

// buildEntries materialises inputs into entries: ids assigned, pure weight
// and subtotal derived, never trusted from the caller.
func buildEntries(inputs []EntryInput, now time.Time) ([]Entry, error) {
	entries := make([]Entry, 0, len(inputs))
	for _, in := range inputs {
		e := Entry{
			ID:            uuid.NewString(),
			Kind:          in.Kind,
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
		if in.Kind == KindMoney {
			e.Money = &MoneyLeg{Direction: in.Direction, Amount: in.Amount}
		} else {
			leg := &MetalLeg{
				Item:       in.Item,
				Weight:     in.Weight,
				Price:      in.Price,
				Touch:      in.Touch,
				Cut:        in.Cut,
				MetalOnly:  in.MetalOnly,
				StockLotID: in.StockLotID,
			}
			leg.PureWeight = bullion.PureWeight(leg.Item, leg.Weight, leg.Touch, leg.Cut)
			if leg.MetalOnly {
				leg.Subtotal = decimal.Zero
			} else {
				leg.Subtotal = leg.PureWeight.Mul(leg.Price).Round(moneyScale)
			}
			e.Metal = leg
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// finishTotals recomputes the header money fields from the entry set.
func finishTotals(t *Transaction, received decimal.Decimal) {
	t.Total = totalOf(t.Entries)
	t.Settlement = Classify(t.Entries)
	t.AmountPaid = received
	if t.Settlement == SettlementMoney && t.AmountPaid.IsZero() {
		t.AmountPaid = signedMoney(t.Entries)
	}
}

type stockApply struct {
	// restore re-creates removed purchase lots under their original ids.
	restore bool
	// allowSold lists lot ids a sell entry may re-mark even though the lot
	// is already sold (retained legs during an update).
	allowSold map[string]struct{}
	at        time.Time
}

// applyStockForward runs the create-time stock rules over the transaction's
// entries, assigning FIFO lots to unattributed sells.
func (s *Service) applyStockForward(ctx context.Context, tx TxRepository, t *Transaction, opts stockApply) error {
	for i := range t.Entries {
		e := &t.Entries[i]
		if !e.IsMetal() || e.Metal == nil || !e.Metal.Item.IsLot() {
			continue
		}
		switch e.Kind {
		case KindPurchase:
			if e.Metal.StockLotID == "" {
				lot := stock.Lot{
					StockID:   uuid.NewString(),
					Item:      e.Metal.Item,
					Weight:    e.Metal.Weight,
					Touch:     e.Metal.Touch,
					CreatedAt: opts.at,
				}
				if err := tx.InsertLot(ctx, lot); err != nil {
					return err
				}
				e.Metal.StockLotID = lot.StockID
				continue
			}
			if opts.restore {
				lot := stock.Lot{
					StockID:   e.Metal.StockLotID,
					Item:      e.Metal.Item,
					Weight:    e.Metal.Weight,
					Touch:     e.Metal.Touch,
					CreatedAt: e.CreatedAt,
				}
				if err := tx.RestoreLot(ctx, lot, opts.at); err != nil {
					return err
				}
				continue
			}
			// retained lot: the purchase survives the edit, carry new attributes
			err := tx.UpdateLot(ctx, stock.Lot{
				StockID: e.Metal.StockLotID,
				Item:    e.Metal.Item,
				Weight:  e.Metal.Weight,
				Touch:   e.Metal.Touch,
			})
			if err != nil {
				if errors.Is(err, stock.ErrNotFound) {
					return inventoryConflictf("purchase lot %s missing", e.Metal.StockLotID)
				}
				return err
			}
		case KindSell:
			if e.Metal.StockLotID == "" {
				lot, err := tx.OldestUnsoldLot(ctx, e.Metal.Item)
				if err != nil {
					if errors.Is(err, stock.ErrNoUnsoldLot) {
						if s.cfg.AllowUnmatchedSell {
							continue
						}
						return inventoryConflictf("no unsold %s lot available", e.Metal.Item)
					}
					return err
				}
				if err := tx.SetLotSold(ctx, lot.StockID, true); err != nil {
					return err
				}
				e.Metal.StockLotID = lot.StockID
				continue
			}
			lot, err := tx.GetLot(ctx, e.Metal.StockLotID)
			if err != nil {
				if errors.Is(err, stock.ErrNotFound) {
					return inventoryConflictf("sell lot %s missing", e.Metal.StockLotID)
				}
				return err
			}
			if lot.IsSold {
				if _, ok := opts.allowSold[lot.StockID]; !ok {
					return inventoryConflictf("lot %s already consumed", lot.StockID)
				}
				continue
			}
			if err := tx.SetLotSold(ctx, lot.StockID, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// reverseStock undoes the forward stock ops of an effect: purchases lose
// their lot, sells release theirs. A lot consumed elsewhere aborts the whole
// attempt; partially reversing a transaction corrupts balances.
//
// Ops are walked last-to-first. A transaction may sell the very lot one of
// its own purchase entries created; unwinding the consume before the add
// leaves the lot unsold by the time it is removed.
func (s *Service) reverseStock(ctx context.Context, tx TxRepository, ops []StockOp, skip map[string]struct{}) error {
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.LotID == "" {
			continue
		}
		if _, keep := skip[op.LotID]; keep {
			continue
		}
		lot, err := tx.GetLot(ctx, op.LotID)
		if err != nil {
			if errors.Is(err, stock.ErrNotFound) {
				return inventoryConflictf("lot %s missing", op.LotID)
			}
			return err
		}
		switch op.Kind {
		case StockOpAdd:
			if lot.IsSold {
				return inventoryConflictf("lot %s was sold elsewhere", op.LotID)
			}
			if err := tx.RemoveLot(ctx, op.LotID); err != nil {
				return err
			}
		case StockOpConsume:
			if !lot.IsSold {
				return inventoryConflictf("lot %s is not marked sold", op.LotID)
			}
			if err := tx.SetLotSold(ctx, op.LotID, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyBalances writes an effect's cash and metal deltas. The cash delta is
// written even when zero so lastTransactionAt is stamped.
func applyBalances(ctx context.Context, tx TxRepository, customerID string, eff Effect, at time.Time) error {
	if err := tx.ApplyCashDelta(ctx, customerID, eff.Cash, at); err != nil {
		return err
	}
	for metal, delta := range eff.Metal {
		if delta.IsZero() {
			continue
		}
		if err := tx.ApplyMetalDelta(ctx, customerID, metal, delta, at); err != nil {
			return err
		}
	}
	return nil
}

// Create records a new transaction and applies its effect.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Transaction, error) {
	if in.CustomerID == "" {
		return nil, validationf("customer required")
	}
	if len(in.Entries) == 0 {
		return nil, validationf("at least one entry required")
	}
	release, err := s.guard.Acquire(in.CustomerID)
	if err != nil {
		return nil, validationf("%v", err)
	}
	defer release()

	now := s.now()
	entries, err := buildEntries(in.Entries, now)
	if err != nil {
		return nil, err
	}
	date := in.Date
	if date.IsZero() {
		date = now
	}
	t := &Transaction{
		ID:            uuid.NewString(),
		CustomerID:    in.CustomerID,
		Date:          date,
		Entries:       entries,
		DiscountExtra: in.DiscountExtra,
		Note:          in.Note,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	finishTotals(t, in.ReceivedAmount)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cust, err := tx.GetCustomerForUpdate(ctx, t.CustomerID)
		if err != nil {
			if errors.Is(err, customer.ErrNotFound) {
				return validationf("customer %s not found", t.CustomerID)
			}
			return err
		}
		t.CustomerName = cust.Name

		if err := s.applyStockForward(ctx, tx, t, stockApply{at: now}); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, t.ID, t.Entries); err != nil {
			return err
		}
		if !t.AmountPaid.IsZero() {
			p := payments.Entry{
				ID:            uuid.NewString(),
				TransactionID: t.ID,
				Amount:        t.AmountPaid,
				NetAmount:     t.Total,
				Timestamp:     now,
			}
			if err := tx.RecordPayment(ctx, p); err != nil {
				return err
			}
		}
		eff, err := Compute(*t)
		if err != nil {
			return err
		}
		return applyBalances(ctx, tx, t.CustomerID, eff, now)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateRecent(ctx)
	s.record(ctx, "ledger:create", t)
	return t, nil
}

// Update replaces a transaction's entries and money fields by reversing the
// old effect and applying the new one inside one atomic attempt.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Transaction, error) {
	if id == "" {
		return nil, validationf("transaction id required")
	}
	if len(in.Entries) == 0 {
		return nil, validationf("empty update target")
	}
	now := s.now()
	newEntries, err := buildEntries(in.Entries, now)
	if err != nil {
		return nil, err
	}

	var result *Transaction
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if old.Deleted() {
			return validationf("transaction %s is deleted", id)
		}
		if err := s.checkEditLock(ctx, old, now); err != nil {
			return err
		}
		release, err := s.guard.Acquire(old.CustomerID)
		if err != nil {
			return validationf("%v", err)
		}
		defer release()

		oldEff, err := Compute(*old)
		if err != nil {
			return err
		}

		// lots this transaction's own sells consumed; only these may show
		// up sold when the new entry set re-marks them
		oldSold := make(map[string]struct{})
		for _, op := range oldEff.Stock {
			if op.Kind == StockOpConsume && op.LotID != "" {
				oldSold[op.LotID] = struct{}{}
			}
		}

		// lots referenced by the new entry set stay in place
		retained := make(map[string]struct{})
		allowSold := make(map[string]struct{})
		for _, e := range newEntries {
			if e.Metal != nil && e.Metal.StockLotID != "" {
				retained[e.Metal.StockLotID] = struct{}{}
				if e.Kind != KindSell {
					continue
				}
				if _, ours := oldSold[e.Metal.StockLotID]; ours {
					allowSold[e.Metal.StockLotID] = struct{}{}
				}
			}
		}
		if err := s.reverseStock(ctx, tx, oldEff.Stock, retained); err != nil {
			return err
		}

		// reverse the old metal deltas while the old entry rows still exist
		for metal, delta := range oldEff.Metal {
			if delta.IsZero() {
				continue
			}
			if err := tx.ApplyMetalDelta(ctx, old.CustomerID, metal, delta.Neg(), now); err != nil {
				return err
			}
		}
		if err := tx.DeleteEntries(ctx, id); err != nil {
			return err
		}

		nt := &Transaction{
			ID:            old.ID,
			CustomerID:    old.CustomerID,
			CustomerName:  old.CustomerName,
			Date:          old.Date,
			Entries:       newEntries,
			DiscountExtra: in.DiscountExtra,
			Note:          in.Note,
			CreatedAt:     old.CreatedAt,
			LastUpdatedAt: now,
		}
		if in.Date != nil {
			nt.Date = *in.Date
		}
		finishTotals(nt, in.ReceivedAmount)

		if err := s.applyStockForward(ctx, tx, nt, stockApply{allowSold: allowSold, at: now}); err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, id, nt.Entries); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, nt); err != nil {
			return err
		}

		// one payment record sized to the cash moved by this edit
		paidDelta := nt.AmountPaid.Sub(old.AmountPaid)
		if !paidDelta.IsZero() {
			p := payments.Entry{
				ID:            uuid.NewString(),
				TransactionID: id,
				Amount:        paidDelta,
				NetAmount:     nt.Total,
				Timestamp:     now,
			}
			if err := tx.RecordPayment(ctx, p); err != nil {
				return err
			}
		}

		newEff, err := Compute(*nt)
		if err != nil {
			return err
		}
		if err := tx.ApplyCashDelta(ctx, nt.CustomerID, newEff.Cash.Sub(oldEff.Cash), now); err != nil {
			return err
		}
		for metal, delta := range newEff.Metal {
			if delta.IsZero() {
				continue
			}
			if err := tx.ApplyMetalDelta(ctx, nt.CustomerID, metal, delta, now); err != nil {
				return err
			}
		}
		result = nt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateRecent(ctx)
	s.record(ctx, "ledger:update", result)
	return result, nil
}

// Delete reverses a transaction's effect and moves it to the recycle bin.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return validationf("transaction id required")
	}
	now := s.now()
	var deleted *Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Deleted() {
			return validationf("transaction %s is already deleted", id)
		}
		if err := s.checkEditLock(ctx, t, now); err != nil {
			return err
		}
		eff, err := Compute(*t)
		if err != nil {
			return err
		}
		if err := s.reverseStock(ctx, tx, eff.Stock, nil); err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, t.CustomerID, eff.Negate(), now); err != nil {
			return err
		}
		if err := tx.MarkPaymentsDeleted(ctx, id, now); err != nil {
			return err
		}
		if err := tx.SetDeletedOn(ctx, id, &now); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateRecent(ctx)
	s.record(ctx, "ledger:delete", deleted)
	return nil
}

// Restore re-applies a soft-deleted transaction's effect and reactivates it.
func (s *Service) Restore(ctx context.Context, id string) error {
	if id == "" {
		return validationf("transaction id required")
	}
	now := s.now()
	var restored *Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !t.Deleted() {
			return validationf("transaction %s is not deleted", id)
		}
		eff, err := Compute(*t)
		if err != nil {
			return err
		}
		if err := s.applyStockForward(ctx, tx, t, stockApply{restore: true, at: now}); err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, t.CustomerID, eff, now); err != nil {
			return err
		}
		if err := tx.ClearPaymentsDeleted(ctx, id); err != nil {
			return err
		}
		if err := tx.SetDeletedOn(ctx, id, nil); err != nil {
			return err
		}
		restored = t
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateRecent(ctx)
	s.record(ctx, "ledger:restore", restored)
	return nil
}

// Purge hard-removes a soft-deleted transaction. The balance reversal
// already happened at delete time, so a purge touches no derived state.
func (s *Service) Purge(ctx context.Context, id string) error {
	if id == "" {
		return validationf("transaction id required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !t.Deleted() {
			return validationf("transaction %s must be deleted before purge", id)
		}
		if err := tx.DeletePaymentsFor(ctx, id); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "ledger:purge", &Transaction{ID: id})
	return nil
}

// CleanupExpired purges recycle-bin transactions older than the retention
// window and returns how many were removed. Safe to call repeatedly.
func (s *Service) CleanupExpired(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = s.cfg.RetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	ids, err := s.repo.ListExpiredIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, id := range ids {
		if err := s.Purge(ctx, id); err != nil {
			if s.logger != nil {
				s.logger.Warn("cleanup purge", slog.String("id", id), slog.Any("error", err))
			}
			continue
		}
		purged++
	}
	return purged, nil
}

// View is a transaction plus the edit-lock verdict the UI consumes.
type View struct {
	Transaction
	EditLocked bool
}

// GetByID returns one transaction with its edit-lock flag.
func (s *Service) GetByID(ctx context.Context, id string) (*View, error) {
	if id == "" {
		return nil, validationf("transaction id required")
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	locked := false
	if cuts, err := s.rateCuts(ctx, t.CustomerID); err == nil {
		locked = EditLocked(*t, cuts, s.now(), s.cfg.Lock)
	}
	return &View{Transaction: *t, EditLocked: locked}, nil
}

// ByCustomer lists a customer's active transactions. Degrades to empty on
// storage failure so history views stay usable.
func (s *Service) ByCustomer(ctx context.Context, customerID string) []View {
	txs, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.warn("list by customer", err)
		return nil
	}
	cuts, err := s.rateCuts(ctx, customerID)
	if err != nil {
		cuts = nil
	}
	now := s.now()
	views := make([]View, 0, len(txs))
	for _, t := range txs {
		views = append(views, View{Transaction: t, EditLocked: EditLocked(t, cuts, now, s.cfg.Lock)})
	}
	return views
}

// ByDateRange lists active transactions within [from, to].
func (s *Service) ByDateRange(ctx context.Context, from, to time.Time) []Transaction {
	txs, err := s.repo.ListByDateRange(ctx, from, to)
	if err != nil {
		s.warn("list by date range", err)
		return nil
	}
	return txs
}

// Recent lists the latest active transactions, served from cache when warm.
func (s *Service) Recent(ctx context.Context, limit int, excludeCustomerName string) []Transaction {
	if limit <= 0 {
		limit = 20
	}
	if s.cache != nil {
		if txs, ok := s.cache.Get(ctx, limit, excludeCustomerName); ok {
			return txs
		}
	}
	txs, err := s.repo.ListRecent(ctx, limit, excludeCustomerName)
	if err != nil {
		s.warn("list recent", err)
		return nil
	}
	if s.cache != nil {
		s.cache.Set(ctx, limit, excludeCustomerName, txs)
	}
	return txs
}

// Deleted lists the recycle bin.
func (s *Service) Deleted(ctx context.Context) []Transaction {
	txs, err := s.repo.ListDeleted(ctx)
	if err != nil {
		s.warn("list deleted", err)
		return nil
	}
	return txs
}

func (s *Service) rateCuts(ctx context.Context, customerID string) (map[bullion.Metal]time.Time, error) {
	if s.cuts == nil {
		return nil, nil
	}
	return s.cuts.RateCuts(ctx, customerID)
}

func (s *Service) checkEditLock(ctx context.Context, t *Transaction, now time.Time) error {
	cuts, err := s.rateCuts(ctx, t.CustomerID)
	if err != nil {
		return err
	}
	if EditLocked(*t, cuts, now, s.cfg.Lock) {
		return ErrEditLocked
	}
	return nil
}

func (s *Service) invalidateRecent(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *Service) record(ctx context.Context, action string, t *Transaction) {
	if s.audit == nil || t == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "transaction",
		EntityID: t.ID,
		Meta: map[string]any{
			"customer_id": t.CustomerID,
			"total":       t.Total.String(),
			"amount_paid": t.AmountPaid.String(),
			"settlement":  string(t.Settlement),
		},
	})
}

func (s *Service) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
