package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
	"github.com/sarafa-ledger/sarafa-ledger/internal/customer"
	"github.com/sarafa-ledger/sarafa-ledger/internal/payments"
	"github.com/sarafa-ledger/sarafa-ledger/internal/platform/db"
	"github.com/sarafa-ledger/sarafa-ledger/internal/stock"
)

// Repository provides PostgreSQL backed persistence for transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction; commit only if
// the callback succeeds.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const headerColumns = `id, customer_id, customer_name, date, discount_extra, total, amount_paid, settlement_type, note, created_at, last_updated_at, deleted_on`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(row rowScanner) (*Transaction, error) {
	var t Transaction
	var settlement string
	if err := row.Scan(&t.ID, &t.CustomerID, &t.CustomerName, &t.Date, &t.DiscountExtra, &t.Total, &t.AmountPaid, &settlement, &t.Note, &t.CreatedAt, &t.LastUpdatedAt, &t.DeletedOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Settlement = Settlement(settlement)
	return &t, nil
}

const entryColumns = `id, transaction_id, kind, item_type, weight, price, touch, cut, pure_weight, money_type, amount, metal_only, stock_lot_id, subtotal, created_at, last_updated_at`

func scanEntry(row rowScanner) (string, Entry, error) {
	var (
		e          Entry
		txID, kind string
		itemType   *string
		moneyType  *string
		stockLotID *string
		weight     decimal.NullDecimal
		price      decimal.NullDecimal
		touch      decimal.NullDecimal
		cut        decimal.NullDecimal
		pureWeight decimal.NullDecimal
		amount     decimal.NullDecimal
		subtotal   decimal.NullDecimal
		metalOnly  bool
	)
	err := row.Scan(&e.ID, &txID, &kind, &itemType, &weight, &price, &touch, &cut, &pureWeight, &moneyType, &amount, &metalOnly, &stockLotID, &subtotal, &e.CreatedAt, &e.LastUpdatedAt)
	if err != nil {
		return "", Entry{}, err
	}
	e.Kind = Kind(kind)
	if e.Kind == KindMoney {
		leg := &MoneyLeg{Amount: amount.Decimal}
		if moneyType != nil {
			leg.Direction = MoneyDirection(*moneyType)
		}
		e.Money = leg
	} else {
		leg := &MetalLeg{
			Weight:     weight.Decimal,
			Price:      price.Decimal,
			Touch:      touch.Decimal,
			Cut:        cut.Decimal,
			PureWeight: pureWeight.Decimal,
			MetalOnly:  metalOnly,
			Subtotal:   subtotal.Decimal,
		}
		if itemType != nil {
			leg.Item = bullion.Item(*itemType)
		}
		if stockLotID != nil {
			leg.StockLotID = *stockLotID
		}
		e.Metal = leg
	}
	return txID, e, nil
}

func (r *Repository) loadEntries(ctx context.Context, ids []string) (map[string][]Entry, error) {
	if len(ids) == 0 {
		return map[string][]Entry{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM transaction_entries WHERE transaction_id = ANY($1) ORDER BY pos`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byTx := make(map[string][]Entry, len(ids))
	for rows.Next() {
		txID, e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		byTx[txID] = append(byTx[txID], e)
	}
	return byTx, rows.Err()
}

func (r *Repository) listHeaders(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	var ids []string
	for rows.Next() {
		t, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	byTx, err := r.loadEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Entries = byTx[out[i].ID]
	}
	return out, nil
}

// GetByID loads one transaction with its entries, deleted or not.
func (r *Repository) GetByID(ctx context.Context, id string) (*Transaction, error) {
	t, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	byTx, err := r.loadEntries(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	t.Entries = byTx[id]
	return t, nil
}

// ListByCustomer returns a customer's active transactions, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]Transaction, error) {
	return r.listHeaders(ctx, `SELECT `+headerColumns+` FROM transactions WHERE customer_id = $1 AND deleted_on IS NULL ORDER BY date DESC, created_at DESC`, customerID)
}

// ListByDateRange returns active transactions within [from, to].
func (r *Repository) ListByDateRange(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	return r.listHeaders(ctx, `SELECT `+headerColumns+` FROM transactions WHERE deleted_on IS NULL AND date >= $1 AND date <= $2 ORDER BY date DESC, created_at DESC`, from, to)
}

// ListRecent returns the latest active transactions, optionally excluding a
// customer name (the expense book is noise on the home screen).
func (r *Repository) ListRecent(ctx context.Context, limit int, excludeCustomerName string) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.listHeaders(ctx, `SELECT `+headerColumns+` FROM transactions WHERE deleted_on IS NULL AND ($2 = '' OR LOWER(customer_name) <> LOWER($2)) ORDER BY created_at DESC LIMIT $1`, limit, excludeCustomerName)
}

// ListDeleted returns the recycle bin, most recently deleted first.
func (r *Repository) ListDeleted(ctx context.Context) ([]Transaction, error) {
	return r.listHeaders(ctx, `SELECT `+headerColumns+` FROM transactions WHERE deleted_on IS NOT NULL ORDER BY deleted_on DESC`)
}

// ListExpiredIDs returns ids of soft-deleted transactions older than cutoff.
func (r *Repository) ListExpiredIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM transactions WHERE deleted_on IS NOT NULL AND deleted_on < $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) GetTransactionForUpdate(ctx context.Context, id string) (*Transaction, error) {
	t, err := scanHeader(r.tx.QueryRow(ctx, `SELECT `+headerColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM transaction_entries WHERE transaction_id = $1 ORDER BY pos`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		_, e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, e)
	}
	return t, rows.Err()
}

func (r *txRepo) InsertTransaction(ctx context.Context, t *Transaction) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO transactions (`+headerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.CustomerID, t.CustomerName, t.Date, t.DiscountExtra, t.Total, t.AmountPaid, string(t.Settlement), t.Note, t.CreatedAt, t.LastUpdatedAt, t.DeletedOn)
	return err
}

func (r *txRepo) UpdateHeader(ctx context.Context, t *Transaction) error {
	tag, err := r.tx.Exec(ctx, `UPDATE transactions SET date = $2, discount_extra = $3, total = $4, amount_paid = $5, settlement_type = $6, note = $7, last_updated_at = $8 WHERE id = $1`,
		t.ID, t.Date, t.DiscountExtra, t.Total, t.AmountPaid, string(t.Settlement), t.Note, t.LastUpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) InsertEntries(ctx context.Context, transactionID string, entries []Entry) error {
	for pos, e := range entries {
		var itemType, moneyType, stockLotID *string
		var weight, price, touch, cut, pureWeight decimal.NullDecimal
		var amount, subtotal decimal.NullDecimal
		var metalOnly bool
		if e.Metal != nil {
			item := string(e.Metal.Item)
			itemType = &item
			weight = decimal.NewNullDecimal(e.Metal.Weight)
			price = decimal.NewNullDecimal(e.Metal.Price)
			touch = decimal.NewNullDecimal(e.Metal.Touch)
			cut = decimal.NewNullDecimal(e.Metal.Cut)
			pureWeight = decimal.NewNullDecimal(e.Metal.PureWeight)
			subtotal = decimal.NewNullDecimal(e.Metal.Subtotal)
			metalOnly = e.Metal.MetalOnly
			if e.Metal.StockLotID != "" {
				lot := e.Metal.StockLotID
				stockLotID = &lot
			}
		}
		if e.Money != nil {
			direction := string(e.Money.Direction)
			moneyType = &direction
			amount = decimal.NewNullDecimal(e.Money.Amount)
		}
		_, err := r.tx.Exec(ctx, `INSERT INTO transaction_entries (`+entryColumns+`, pos) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			e.ID, transactionID, string(e.Kind), itemType, weight, price, touch, cut, pureWeight, moneyType, amount, metalOnly, stockLotID, subtotal, e.CreatedAt, e.LastUpdatedAt, pos)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) DeleteEntries(ctx context.Context, transactionID string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM transaction_entries WHERE transaction_id = $1`, transactionID)
	return err
}

func (r *txRepo) SetDeletedOn(ctx context.Context, transactionID string, on *time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE transactions SET deleted_on = $2 WHERE id = $1`, transactionID, on)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) DeleteTransaction(ctx context.Context, transactionID string) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM transaction_entries WHERE transaction_id = $1`, transactionID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, transactionID)
	return err
}

func (r *txRepo) GetCustomerForUpdate(ctx context.Context, id string) (*customer.Customer, error) {
	return customer.GetForUpdate(ctx, r.tx, id)
}

func (r *txRepo) ApplyCashDelta(ctx context.Context, customerID string, delta decimal.Decimal, at time.Time) error {
	return customer.ApplyCashDelta(ctx, r.tx, customerID, delta, at)
}

func (r *txRepo) ApplyMetalDelta(ctx context.Context, customerID string, metal bullion.Metal, delta decimal.Decimal, at time.Time) error {
	return customer.ApplyMetalDelta(ctx, r.tx, customerID, metal, delta, at)
}

func (r *txRepo) InsertLot(ctx context.Context, lot stock.Lot) error {
	return stock.Insert(ctx, r.tx, lot)
}

func (r *txRepo) RestoreLot(ctx context.Context, lot stock.Lot, at time.Time) error {
	return stock.RestoreLot(ctx, r.tx, lot, at)
}

func (r *txRepo) UpdateLot(ctx context.Context, lot stock.Lot) error {
	return stock.Update(ctx, r.tx, lot)
}

func (r *txRepo) RemoveLot(ctx context.Context, stockID string) error {
	return stock.Remove(ctx, r.tx, stockID)
}

func (r *txRepo) SetLotSold(ctx context.Context, stockID string, sold bool) error {
	return stock.SetSold(ctx, r.tx, stockID, sold)
}

func (r *txRepo) GetLot(ctx context.Context, stockID string) (*stock.Lot, error) {
	return stock.Get(ctx, r.tx, stockID)
}

func (r *txRepo) OldestUnsoldLot(ctx context.Context, item bullion.Item) (*stock.Lot, error) {
	return stock.OldestUnsold(ctx, r.tx, item)
}

func (r *txRepo) RecordPayment(ctx context.Context, e payments.Entry) error {
	return payments.Record(ctx, r.tx, e)
}

func (r *txRepo) DeletePaymentsFor(ctx context.Context, transactionID string) error {
	return payments.DeleteForTransaction(ctx, r.tx, transactionID)
}

func (r *txRepo) MarkPaymentsDeleted(ctx context.Context, transactionID string, on time.Time) error {
	return payments.MarkDeleted(ctx, r.tx, transactionID, on)
}

func (r *txRepo) ClearPaymentsDeleted(ctx context.Context, transactionID string) error {
	return payments.ClearDeleted(ctx, r.tx, transactionID)
}
