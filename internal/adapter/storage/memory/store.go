// Package memory is an in-process implementation of the repository ports.
//
// It mirrors the PostgreSQL adapter's concurrency contract: GetByIDForUpdate
// and every row write take a row lock held until the unit of work ends, rows
// written inside a unit of work are invisible to others until Commit, and
// Rollback discards them. It backs the "memory" database driver and the
// end-to-end tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrVersionConflict is returned when an account row changed under a
	// writer whose snapshot is stale.
	ErrVersionConflict = errors.New("account version conflict")

	errForeignTx = errors.New("memory store: transaction was not started by this store")
	errNotFound  = errors.New("memory store: row not found")
	errDuplicate = errors.New("memory store: duplicate key")
)

// Store holds every table. All maps are guarded by mu; row locks are
// separate channels so a waiter never holds mu.
type Store struct {
	mu sync.Mutex

	participants map[uuid.UUID]domain.Participant
	usernames    map[string]uuid.UUID

	accounts     map[uuid.UUID]*rowCell[domain.Account]
	accountOrder []uuid.UUID

	txns    []*entry[domain.Transaction]
	txnByID map[uuid.UUID]*entry[domain.Transaction]
	seq     int64

	idem map[string]*entry[domain.IdempotencyLog]

	rounds       map[uuid.UUID]domain.VotingRound
	candidates   map[uuid.UUID]*rowCell[domain.Candidate]
	votes        []*entry[domain.Vote]
	endorsements []domain.Endorsement
	kyc          map[uuid.UUID]*rowCell[domain.KYCSubmission]
	audits       []domain.AuditLog

	locks map[string]chan struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		participants: map[uuid.UUID]domain.Participant{},
		usernames:    map[string]uuid.UUID{},
		accounts:     map[uuid.UUID]*rowCell[domain.Account]{},
		txnByID:      map[uuid.UUID]*entry[domain.Transaction]{},
		idem:         map[string]*entry[domain.IdempotencyLog]{},
		rounds:       map[uuid.UUID]domain.VotingRound{},
		candidates:   map[uuid.UUID]*rowCell[domain.Candidate]{},
		kyc:          map[uuid.UUID]*rowCell[domain.KYCSubmission]{},
		locks:        map[string]chan struct{}{},
	}
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Ping implements ports.HealthChecker. The store is always reachable.
func (s *Store) Ping(context.Context) error { return nil }

// lock acquires the row lock for key on behalf of tx. A nil tx takes the lock
// for a single statement; the caller must call the returned release.
func (s *Store) lock(ctx context.Context, tx *memTx, key string) (release func(), err error) {
	if tx != nil {
		if _, ok := tx.held[key]; ok {
			return func() {}, nil
		}
	}

	s.mu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if tx != nil {
		tx.held[key] = ch
		return func() {}, nil
	}
	return func() { <-ch }, nil
}

// rowCell is a mutable row. dirty is the uncommitted version written by
// owner, which always holds the row lock while dirty is set.
type rowCell[T any] struct {
	val   T
	dirty *T
	owner *memTx
}

// view returns the version visible to tx.
func (r *rowCell[T]) view(tx *memTx) T {
	if tx != nil && r.owner == tx && r.dirty != nil {
		return *r.dirty
	}
	return r.val
}

// write applies fn to the version tx is allowed to change. Callers hold mu
// and the row lock.
func (r *rowCell[T]) write(tx *memTx, fn func(*T)) {
	if tx == nil {
		fn(&r.val)
		return
	}
	if r.owner != tx {
		cp := r.val
		r.dirty, r.owner = &cp, tx
		tx.onEnd(func(commit bool) {
			if commit {
				r.val = *r.dirty
			}
			r.dirty, r.owner = nil, nil
		})
	}
	fn(r.dirty)
}

// entry is an appended row. It is visible to others once owner commits.
type entry[T any] struct {
	val   T
	owner *memTx
	dead  bool
}

func (e *entry[T]) visible(tx *memTx) bool {
	return !e.dead && (e.owner == nil || e.owner == tx)
}

// appendEntry records e as written by tx. Callers hold mu.
func appendEntry[T any](tx *memTx, e *entry[T], onRollback func()) {
	if tx == nil {
		return
	}
	e.owner = tx
	tx.onEnd(func(commit bool) {
		e.owner = nil
		if !commit {
			e.dead = true
			if onRollback != nil {
				onRollback()
			}
		}
	})
}

// memTx implements pgx.Tx for the memory repositories only. Methods it does
// not override must not be called.
type memTx struct {
	pgx.Tx
	store  *Store
	held   map[string]chan struct{}
	finish []func(commit bool)
	done   bool
}

func (t *memTx) onEnd(fn func(commit bool)) {
	t.finish = append(t.finish, fn)
}

func (t *memTx) Commit(context.Context) error   { return t.end(true) }
func (t *memTx) Rollback(context.Context) error { return t.end(false) }

func (t *memTx) end(commit bool) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.store.mu.Lock()
	for _, fn := range t.finish {
		fn(commit)
	}
	t.finish = nil
	t.store.mu.Unlock()

	for key, ch := range t.held {
		<-ch
		delete(t.held, key)
	}
	return nil
}

// unwrap returns the memory transaction behind tx, or nil for autocommit.
func unwrap(tx pgx.Tx) (*memTx, error) {
	if tx == nil {
		return nil, nil
	}
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, errForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

// Transactor implements ports.DBTransactor over a Store.
type Transactor struct {
	store *Store
}

func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a unit of work.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{store: t.store, held: map[string]chan struct{}{}}, nil
}
