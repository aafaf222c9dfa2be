package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
)

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, cash_balance, metal_balance_gold999, metal_balance_gold995, metal_balance_silver, last_transaction_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	var g999, g995, silver decimal.Decimal
	var lastAt *time.Time
	if err := row.Scan(&c.ID, &c.Name, &c.CashBalance, &g999, &g995, &silver, &lastAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.MetalBalances = map[bullion.Metal]decimal.Decimal{
		bullion.MetalGold999: g999,
		bullion.MetalGold995: g995,
		bullion.MetalSilver:  silver,
	}
	if lastAt != nil {
		c.LastTransactionAt = *lastAt
	}
	return &c, nil
}

// GetByID loads a customer row.
func (r *Repository) GetByID(ctx context.Context, id string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

// List returns all customers ordered by name.
func (r *Repository) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// RateCuts returns the rate-cut lock dates recorded for a customer.
func (r *Repository) RateCuts(ctx context.Context, customerID string) (map[bullion.Metal]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT metal, locked_before FROM customer_rate_cuts WHERE customer_id = $1`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cuts := make(map[bullion.Metal]time.Time)
	for rows.Next() {
		var metal string
		var before time.Time
		if err := rows.Scan(&metal, &before); err != nil {
			return nil, err
		}
		cuts[bullion.Metal(metal)] = before
	}
	return cuts, rows.Err()
}

// SetRateCut upserts the lock date for one metal.
func (r *Repository) SetRateCut(ctx context.Context, cut RateCut) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO customer_rate_cuts (customer_id, metal, locked_before)
VALUES ($1, $2, $3)
ON CONFLICT (customer_id, metal) DO UPDATE SET locked_before = EXCLUDED.locked_before`,
		cut.CustomerID, string(cut.Metal), cut.LockedBefore)
	return err
}

func metalColumn(metal bullion.Metal) (string, error) {
	switch metal {
	case bullion.MetalGold999:
		return "metal_balance_gold999", nil
	case bullion.MetalGold995:
		return "metal_balance_gold995", nil
	case bullion.MetalSilver:
		return "metal_balance_silver", nil
	}
	return "", fmt.Errorf("customer: unknown metal %q", metal)
}

// Tx-scoped operations below are the only writers of balance columns. The
// ledger calls them inside its own transaction boundary.

// GetForUpdate locks and loads a customer row inside a transaction.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Customer, error) {
	row := tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id)
	return scanCustomer(row)
}

// ApplyCashDelta moves the cash balance by delta and stamps the last
// transaction time.
func ApplyCashDelta(ctx context.Context, tx pgx.Tx, id string, delta decimal.Decimal, at time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE customers SET cash_balance = cash_balance + $2, last_transaction_at = $3 WHERE id = $1`, id, delta, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyMetalDelta moves one per-metal balance by delta.
func ApplyMetalDelta(ctx context.Context, tx pgx.Tx, id string, metal bullion.Metal, delta decimal.Decimal, at time.Time) error {
	col, err := metalColumn(metal)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE customers SET `+col+` = `+col+` + $2, last_transaction_at = $3 WHERE id = $1`, id, delta, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
