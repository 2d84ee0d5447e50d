package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const txSelectColumns = `id, seq, account_id, type, amount, balance_after, reference,
		counterparty_id, reverses_id, created_at`

// TransactionRepo implements ports.TransactionRepository over the append-only
// transactions table. A trigger rejects UPDATE and DELETE on that table.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a transaction within a database transaction and fills t.Seq.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, account_id, type, amount, balance_after, reference,
		counterparty_id, reverses_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`

	err := tx.QueryRow(ctx, query,
		t.ID, t.AccountID, t.Type, t.Amount, t.BalanceAfter, t.Reference,
		t.CounterpartyID, t.ReversesID, t.CreatedAt,
	).Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + txSelectColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// List fetches an account's transactions newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	conditions := []string{"account_id = $1"}
	args := []any{params.AccountID}
	argIdx := 2

	if params.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.Since)
		argIdx++
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY seq DESC LIMIT $%d`,
		txSelectColumns, strings.Join(conditions, " AND "), argIdx)
	args = append(args, params.Limit)

	return r.queryTransactions(ctx, r.pool, query, args...)
}

// ListAll returns the account's complete log in append order.
func (r *TransactionRepo) ListAll(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + txSelectColumns + ` FROM transactions WHERE account_id = $1 ORDER BY seq ASC`
	return r.queryTransactions(ctx, on(r.pool, tx), query, accountID)
}

// SumSince returns the signed sum of txType amounts recorded after since.
// Compensating entries carry the original type, so the sum is net of reversals.
func (r *TransactionRepo) SumSince(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE account_id = $1 AND type = $2 AND created_at > $3`

	var sum decimal.Decimal
	if err := on(r.pool, tx).QueryRow(ctx, query, accountID, txType, since).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s since: %w", txType, err)
	}
	return sum, nil
}

// ReversalExists checks if a compensating entry already exists for originalID.
func (r *TransactionRepo) ReversalExists(ctx context.Context, tx pgx.Tx, originalID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE reverses_id = $1)`

	var exists bool
	if err := on(r.pool, tx).QueryRow(ctx, query, originalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reversal exists: %w", err)
	}
	return exists, nil
}

func (r *TransactionRepo) queryTransactions(ctx context.Context, q querier, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// scanTransaction scans one row selected with txSelectColumns.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Seq, &t.AccountID, &t.Type, &t.Amount, &t.BalanceAfter, &t.Reference,
		&t.CounterpartyID, &t.ReversesID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
