package service

import (
	"context"
	"fmt"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transaction history page sizes.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type ledgerService struct {
	accounts   ports.AccountRepository
	txns       ports.TransactionRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates the read and maintenance surface of the ledger.
func NewLedgerService(
	accounts ports.AccountRepository,
	txns ports.TransactionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) ports.LedgerService {
	return &ledgerService{accounts: accounts, txns: txns, transactor: transactor, log: log}
}

func (s *ledgerService) GetWallet(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	switch {
	case params.Limit <= 0:
		params.Limit = DefaultListLimit
	case params.Limit > MaxListLimit:
		params.Limit = MaxListLimit
	}
	txns, err := s.txns.List(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, nil
}

// Reconcile recomputes the balance from the full log. A mismatch is logged
// and returned in the report, not as an error. The account row is locked
// while both are read so no posting lands between them.
func (s *ledgerService) Reconcile(ctx context.Context, accountID uuid.UUID) (*domain.Reconciliation, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accounts.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	entries, err := s.txns.ListAll(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load ledger: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	r := domain.Reconcile(account, entries)
	if !r.Consistent {
		s.log.Error().
			Str("account_id", accountID.String()).
			Str("cached", r.CachedBalance).
			Str("log_sum", r.LogSum).
			Str("last_balance_after", r.LastBalanceAfter).
			Msg("ledger does not reconcile")
	}
	return &r, nil
}

func (s *ledgerService) ReconcileAll(ctx context.Context) ([]domain.Reconciliation, error) {
	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list accounts: %w", err))
	}
	out := make([]domain.Reconciliation, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, apperror.ErrRequestCancelled(err)
		}
		r, err := s.Reconcile(ctx, id)
		if err != nil {
			return out, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// Deactivate soft-disables an account. History and balance are kept.
func (s *ledgerService) Deactivate(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accounts.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !account.Active {
		return account, nil
	}
	if err := s.accounts.SetActive(ctx, dbTx, accountID, false); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("deactivate account: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("account_id", accountID.String()).Msg("account deactivated")
	account.Active = false
	return account, nil
}
