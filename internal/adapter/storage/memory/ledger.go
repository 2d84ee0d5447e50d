package memory

import (
	"context"
	"fmt"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository. The log is
// append-only: there is no update or delete path.
type TransactionRepo struct {
	s *Store
}

func NewTransactionRepo(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, err := unwrap(tx)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("insert transaction: unknown type %q", t.Type)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.txnByID[t.ID]; exists {
		return fmt.Errorf("insert transaction %s: %w", t.ID, errDuplicate)
	}
	if t.ReversesID != nil {
		for _, e := range r.s.txns {
			if !e.dead && e.val.ReversesID != nil && *e.val.ReversesID == *t.ReversesID {
				return fmt.Errorf("insert reversal of %s: %w", *t.ReversesID, errDuplicate)
			}
		}
	}

	r.s.seq++
	t.Seq = r.s.seq
	e := &entry[domain.Transaction]{val: *t}
	r.s.txns = append(r.s.txns, e)
	r.s.txnByID[t.ID] = e
	id := t.ID
	appendEntry(mt, e, func() { delete(r.s.txnByID, id) })
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.txnByID[id]
	if !ok || !e.visible(nil) {
		return nil, nil
	}
	t := e.val
	return &t, nil
}

// List returns committed entries newest first.
func (r *TransactionRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.Transaction{}
	for i := len(r.s.txns) - 1; i >= 0 && len(out) < params.Limit; i-- {
		e := r.s.txns[i]
		if !e.visible(nil) || e.val.AccountID != params.AccountID {
			continue
		}
		if params.Since != nil && e.val.CreatedAt.Before(*params.Since) {
			continue
		}
		out = append(out, e.val)
	}
	return out, nil
}

// ListAll returns the log in append order, including entries written earlier in tx.
func (r *TransactionRepo) ListAll(_ context.Context, tx pgx.Tx, accountID uuid.UUID) ([]domain.Transaction, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Transaction
	for _, e := range r.s.txns {
		if e.visible(mt) && e.val.AccountID == accountID {
			out = append(out, e.val)
		}
	}
	return out, nil
}

func (r *TransactionRepo) SumSince(_ context.Context, tx pgx.Tx, accountID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, e := range r.s.txns {
		if e.visible(mt) && e.val.AccountID == accountID && e.val.Type == txType && e.val.CreatedAt.After(since) {
			sum = sum.Add(e.val.Amount)
		}
	}
	return sum, nil
}

func (r *TransactionRepo) ReversalExists(_ context.Context, tx pgx.Tx, originalID uuid.UUID) (bool, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return false, fmt.Errorf("check reversal: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.txns {
		if e.visible(mt) && e.val.ReversesID != nil && *e.val.ReversesID == originalID {
			return true, nil
		}
	}
	return false, nil
}

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	s *Store
}

func NewIdempotencyRepo(s *Store) *IdempotencyRepo {
	return &IdempotencyRepo{s: s}
}

// Create replaces any committed log under the same key, expired or not. The
// replaced log comes back if tx rolls back.
func (r *IdempotencyRepo) Create(_ context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	mt, err := unwrap(tx)
	if err != nil {
		return fmt.Errorf("insert idempotency log: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := log.Key
	prev, ok := r.s.idem[key]
	if ok && !prev.dead && prev.owner != nil && prev.owner != mt {
		return fmt.Errorf("insert idempotency log %q: %w", key, errDuplicate)
	}
	restore := ok && !prev.dead && prev.owner == nil

	e := &entry[domain.IdempotencyLog]{val: *log}
	r.s.idem[key] = e
	appendEntry(mt, e, func() {
		if r.s.idem[key] != e {
			return
		}
		if restore {
			r.s.idem[key] = prev
			return
		}
		delete(r.s.idem, key)
	})
	return nil
}

func (r *IdempotencyRepo) Get(_ context.Context, tx pgx.Tx, key string, since time.Time) (*domain.IdempotencyLog, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return nil, fmt.Errorf("get idempotency log: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.idem[key]
	if !ok || !e.visible(mt) || !e.val.CreatedAt.After(since) {
		return nil, nil
	}
	l := e.val
	return &l, nil
}
