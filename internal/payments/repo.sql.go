package payments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads over ledger_entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByTransaction returns cash-flow records for one transaction,
// oldest first, including soft-deleted rows.
func (r *Repository) ListByTransaction(ctx context.Context, transactionID string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, amount, net_amount, ts, deleted_on FROM ledger_entries WHERE transaction_id = $1 ORDER BY ts`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Amount, &e.NetAmount, &e.Timestamp, &e.DeletedOn); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Tx-scoped operations below are driven by the ledger inside its own
// transaction boundary.

// Record appends one cash-flow record.
func Record(ctx context.Context, tx pgx.Tx, e Entry) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_entries (id, transaction_id, amount, net_amount, ts) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.TransactionID, e.Amount, e.NetAmount, e.Timestamp)
	return err
}

// DeleteForTransaction hard-removes every record of a transaction.
func DeleteForTransaction(ctx context.Context, tx pgx.Tx, transactionID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM ledger_entries WHERE transaction_id = $1`, transactionID)
	return err
}

// MarkDeleted stamps a soft-delete date on every record of a transaction.
func MarkDeleted(ctx context.Context, tx pgx.Tx, transactionID string, on time.Time) error {
	_, err := tx.Exec(ctx, `UPDATE ledger_entries SET deleted_on = $2 WHERE transaction_id = $1`, transactionID, on)
	return err
}

// ClearDeleted removes the soft-delete mark on every record of a transaction.
func ClearDeleted(ctx context.Context, tx pgx.Tx, transactionID string) error {
	_, err := tx.Exec(ctx, `UPDATE ledger_entries SET deleted_on = NULL WHERE transaction_id = $1`, transactionID)
	return err
}
