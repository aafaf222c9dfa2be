package stock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// Repository provides PostgreSQL backed reads over stock lots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const lotColumns = `stock_id, item_type, weight, touch, is_sold, created_at`

func scanLot(row pgx.Row) (*Lot, error) {
	var l Lot
	var item string
	if err := row.Scan(&l.StockID, &item, &l.Weight, &l.Touch, &l.IsSold, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	l.Item = bullion.Item(item)
	return &l, nil
}

func collectLots(rows pgx.Rows) ([]Lot, error) {
	defer rows.Close()
	var out []Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// List returns every lot, oldest first.
func (r *Repository) List(ctx context.Context) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM stock_lots ORDER BY created_at, stock_id`)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

// ListUnsold returns unsold lots of one kind, oldest first.
func (r *Repository) ListUnsold(ctx context.Context, item bullion.Item) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE item_type = $1 AND NOT is_sold ORDER BY created_at, stock_id`, string(item))
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

// Tx-scoped operations below are the only writers of stock_lots. The ledger
// drives them inside its own transaction boundary.

// Insert adds a lot.
func Insert(ctx context.Context, tx pgx.Tx, lot Lot) error {
	if !lot.Item.IsLot() {
		return ErrNotLotItem
	}
	_, err := tx.Exec(ctx, `INSERT INTO stock_lots (stock_id, item_type, weight, touch, is_sold, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		lot.StockID, string(lot.Item), lot.Weight, lot.Touch, lot.IsSold, lot.CreatedAt)
	return err
}

// Update rewrites a lot's weight and touch, keeping its FIFO position.
func Update(ctx context.Context, tx pgx.Tx, lot Lot) error {
	tag, err := tx.Exec(ctx, `UPDATE stock_lots SET weight = $2, touch = $3 WHERE stock_id = $1`, lot.StockID, lot.Weight, lot.Touch)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a lot row. Used only when the originating purchase entry is
// reversed.
func Remove(ctx context.Context, tx pgx.Tx, stockID string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM stock_lots WHERE stock_id = $1`, stockID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSold flips the sold flag on a lot.
func SetSold(ctx context.Context, tx pgx.Tx, stockID string, sold bool) error {
	tag, err := tx.Exec(ctx, `UPDATE stock_lots SET is_sold = $2 WHERE stock_id = $1`, stockID, sold)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get locks and loads one lot.
func Get(ctx context.Context, tx pgx.Tx, stockID string) (*Lot, error) {
	row := tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE stock_id = $1 FOR UPDATE`, stockID)
	return scanLot(row)
}

// OldestUnsold picks the FIFO head for one lot kind: the oldest unsold lot,
// created_at then stock_id as tiebreak.
func OldestUnsold(ctx context.Context, tx pgx.Tx, item bullion.Item) (*Lot, error) {
	if !item.IsLot() {
		return nil, ErrNotLotItem
	}
	row := tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE item_type = $1 AND NOT is_sold ORDER BY created_at, stock_id LIMIT 1 FOR UPDATE`, string(item))
	lot, err := scanLot(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoUnsoldLot
	}
	return lot, err
}

// RestoreLot re-inserts a previously removed lot keeping its original id and
// creation time so FIFO ordering survives a delete/restore round trip.
func RestoreLot(ctx context.Context, tx pgx.Tx, lot Lot, at time.Time) error {
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = at
	}
	return Insert(ctx, tx, lot)
}
