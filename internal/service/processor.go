package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Outcome labels reported to ports.LedgerMetrics.
const (
	OutcomeCommitted = "committed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// DefaultIdempotencyTTL bounds how long a client key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IntentProcessorImpl implements ports.IntentProcessor. It is the only code
// path that writes balances.
type IntentProcessorImpl struct {
	accounts   ports.AccountRepository
	txns       ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	gate       ports.TierGate
	transactor ports.DBTransactor
	metrics    ports.LedgerMetrics
	ttl        time.Duration
	log        zerolog.Logger
}

// NewIntentProcessor creates a new IntentProcessorImpl. idempCache and
// metrics may be nil.
func NewIntentProcessor(
	accounts ports.AccountRepository,
	txns ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	gate ports.TierGate,
	transactor ports.DBTransactor,
	metrics ports.LedgerMetrics,
	ttl time.Duration,
	log zerolog.Logger,
) *IntentProcessorImpl {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IntentProcessorImpl{
		accounts:   accounts,
		txns:       txns,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		gate:       gate,
		transactor: transactor,
		metrics:    metrics,
		ttl:        ttl,
		log:        log,
	}
}

// Process validates and applies one intent in a single unit of work.
func (s *IntentProcessorImpl) Process(ctx context.Context, in ports.Intent) (*ports.IntentResult, error) {
	start := time.Now()
	res, err := s.process(ctx, in)
	s.observe(in.Type, res, err, time.Since(start))
	return res, err
}

func (s *IntentProcessorImpl) process(ctx context.Context, in ports.Intent) (*ports.IntentResult, error) {
	if !in.Type.Valid() {
		s.log.Error().
			Str("type", string(in.Type)).
			Str("account_id", in.AccountID.String()).
			Msg("rejected intent with unsupported transaction type")
		return nil, apperror.ErrUnsupportedTransactionType(string(in.Type))
	}
	if !domain.ValidAmount(in.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if in.Type == domain.TransactionTypeTransfer {
		if in.CounterpartyID == nil || *in.CounterpartyID == in.AccountID {
			return nil, apperror.Validation("transfer needs a destination account other than the source")
		}
	} else if in.CounterpartyID != nil {
		return nil, apperror.Validation("counterparty is only accepted on transfers")
	}

	key, hash := s.idempotency(in)

	// Layers 1 and 2: Redis, then the DB log outside the lock.
	if key != "" {
		res, err := s.lookup(ctx, key, hash)
		if err != nil || res != nil {
			return res, err
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, counterparty, err := s.lockAccounts(ctx, dbTx, in)
	if err != nil {
		return nil, err
	}

	// Layer 3: a concurrent duplicate may have committed while we waited on the lock.
	now := time.Now().UTC()
	if key != "" {
		existing, err := s.idempRepo.Get(ctx, dbTx, key, now.Add(-s.ttl))
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency recheck: %w", err))
		}
		if existing != nil {
			return s.replay(existing, hash)
		}
	}

	if !account.Active || (counterparty != nil && !counterparty.Active) {
		return nil, apperror.ErrAccountInactive()
	}

	if in.Guard != nil {
		if err := in.Guard(ctx, dbTx, account); err != nil {
			return nil, err
		}
	}

	signed, err := s.apply(ctx, dbTx, account, in)
	if err != nil {
		return nil, err
	}

	newBalance := account.Balance.Add(signed)
	if newBalance.IsNegative() {
		return nil, apperror.ErrInsufficientFunds()
	}
	account.Balance = newBalance

	if err := s.accounts.UpdateBalances(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	txn := &domain.Transaction{
		ID:             uuid.New(),
		AccountID:      account.ID,
		Type:           in.Type,
		Amount:         signed,
		BalanceAfter:   newBalance,
		Reference:      in.Reference,
		CounterpartyID: in.CounterpartyID,
		CreatedAt:      now,
	}
	if err := s.txns.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	// The credit leg only runs once the debit is written.
	if counterparty != nil {
		if err := s.credit(ctx, dbTx, counterparty, account.ID, in, now); err != nil {
			return nil, err
		}
	}

	result := &ports.IntentResult{Transaction: *txn, NewBalance: newBalance}
	if in.Effect != nil {
		if err := in.Effect(ctx, dbTx, txn, result); err != nil {
			return nil, err
		}
	}

	var cacheValue []byte
	if key != "" {
		respJSON, err := json.Marshal(result)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		entry := &domain.IdempotencyLog{
			Key:           key,
			TransactionID: txn.ID,
			RequestHash:   hash,
			ResponseJSON:  respJSON,
			CreatedAt:     now,
		}
		if err := s.idempRepo.Create(ctx, dbTx, entry); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
		if cacheValue, err = json.Marshal(entry); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal idempotency log: %w", err))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, apperror.ErrRequestCancelled(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if cacheValue != nil && s.idempCache != nil {
		if err := s.idempCache.Set(ctx, key, cacheValue, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("account_id", account.ID.String()).
		Str("type", string(txn.Type)).
		Str("amount", domain.FormatAmount(txn.Amount)).
		Str("balance_after", domain.FormatAmount(newBalance)).
		Msg("intent committed")

	return result, nil
}

// apply runs the per-type rules and returns the signed amount to post.
func (s *IntentProcessorImpl) apply(ctx context.Context, dbTx pgx.Tx, account *domain.Account, in ports.Intent) (decimal.Decimal, error) {
	switch in.Type {
	case domain.TransactionTypeEarn, domain.TransactionTypePrize:
		account.LifetimeEarned = account.LifetimeEarned.Add(in.Amount)
		return in.Amount, nil

	case domain.TransactionTypeWithdraw:
		decision, err := s.gate.CheckWithdrawal(ctx, dbTx, account, in.Amount)
		if err := denied(decision, err); err != nil {
			return decimal.Zero, err
		}
		account.CashEscrow = account.CashEscrow.Add(in.Amount)
		return in.Amount.Neg(), nil

	case domain.TransactionTypeVote:
		decision, err := s.gate.CheckVoteSpend(ctx, dbTx, account, in.Amount, 0)
		if err := denied(decision, err); err != nil {
			return decimal.Zero, err
		}
		return in.Amount.Neg(), nil

	case domain.TransactionTypeDonate, domain.TransactionTypePurchase,
		domain.TransactionTypeFee, domain.TransactionTypeTransfer:
		return in.Amount.Neg(), nil
	}
	return decimal.Zero, apperror.ErrUnsupportedTransactionType(string(in.Type))
}

func denied(decision *ports.TierDecision, err error) error {
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.InternalError(fmt.Errorf("tier check: %w", err))
	}
	if !decision.Allowed {
		return apperror.ErrTierLimitExceeded(decision.Reason)
	}
	return nil
}

func (s *IntentProcessorImpl) credit(ctx context.Context, dbTx pgx.Tx, to *domain.Account, from uuid.UUID, in ports.Intent, now time.Time) error {
	to.Balance = to.Balance.Add(in.Amount)
	if err := s.accounts.UpdateBalances(ctx, dbTx, to); err != nil {
		return apperror.InternalError(fmt.Errorf("update counterparty balances: %w", err))
	}
	leg := &domain.Transaction{
		ID:             uuid.New(),
		AccountID:      to.ID,
		Type:           domain.TransactionTypeTransfer,
		Amount:         in.Amount,
		BalanceAfter:   to.Balance,
		Reference:      in.Reference,
		CounterpartyID: &from,
		CreatedAt:      now,
	}
	if err := s.txns.Create(ctx, dbTx, leg); err != nil {
		return apperror.InternalError(fmt.Errorf("create transfer credit: %w", err))
	}
	return nil
}

// lockAccounts locks the issuing account and, for transfers, the destination.
// Both are locked in id order so opposing transfers cannot deadlock.
func (s *IntentProcessorImpl) lockAccounts(ctx context.Context, dbTx pgx.Tx, in ports.Intent) (*domain.Account, *domain.Account, error) {
	if in.CounterpartyID == nil {
		account, err := s.lock(ctx, dbTx, in.AccountID, "account")
		return account, nil, err
	}

	first, second := in.AccountID, *in.CounterpartyID
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}
	a, err := s.lock(ctx, dbTx, first, "account")
	if err != nil {
		return nil, nil, err
	}
	b, err := s.lock(ctx, dbTx, second, "account")
	if err != nil {
		return nil, nil, err
	}
	if a.ID == in.AccountID {
		return a, b, nil
	}
	return b, a, nil
}

func (s *IntentProcessorImpl) lock(ctx context.Context, dbTx pgx.Tx, id uuid.UUID, entity string) (*domain.Account, error) {
	account, err := s.accounts.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock %s: %w", entity, err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound(entity)
	}
	return account, nil
}

// Replay returns the stored result of a processed intent, or nil.
func (s *IntentProcessorImpl) Replay(ctx context.Context, in ports.Intent) (*ports.IntentResult, error) {
	key, hash := s.idempotency(in)
	if key == "" {
		return nil, nil
	}
	res, err := s.lookup(ctx, key, hash)
	if res != nil && s.metrics != nil {
		s.metrics.IncReplay()
	}
	return res, err
}

// lookup checks Redis, then the committed DB log.
func (s *IntentProcessorImpl) lookup(ctx context.Context, key, hash string) (*ports.IntentResult, error) {
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			var entry domain.IdempotencyLog
			if err := json.Unmarshal(cached, &entry); err == nil {
				return s.replay(&entry, hash)
			}
			s.log.Warn().Str("key", key).Msg("discarding unreadable idempotency cache entry")
		}
	}

	entry, err := s.idempRepo.Get(ctx, nil, key, time.Now().UTC().Add(-s.ttl))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if entry == nil {
		return nil, nil
	}
	return s.replay(entry, hash)
}

func (s *IntentProcessorImpl) replay(entry *domain.IdempotencyLog, hash string) (*ports.IntentResult, error) {
	if entry.RequestHash != hash {
		return nil, apperror.ErrIdempotencyKeyReused()
	}
	var res ports.IntentResult
	if err := json.Unmarshal(entry.ResponseJSON, &res); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal stored result: %w", err))
	}
	res.Replayed = true
	return &res, nil
}

// idempotency returns the scoped key and request fingerprint, or "" when the
// caller sent no client key.
func (s *IntentProcessorImpl) idempotency(in ports.Intent) (string, string) {
	if in.IdempotencyKey == "" {
		return "", ""
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", in.Type, domain.FormatAmount(in.Amount))
	if in.CounterpartyID != nil {
		fmt.Fprintf(h, "|to=%s", in.CounterpartyID)
	}
	if in.Reference != nil {
		fmt.Fprintf(h, "|ref=%s", *in.Reference)
	}
	fmt.Fprintf(h, "|%s", in.Fingerprint)
	return domain.BuildIdempotencyKey(in.AccountID, in.Type, in.IdempotencyKey), hex.EncodeToString(h.Sum(nil))
}

// Reverse posts a compensating entry for a reversible debit.
func (s *IntentProcessorImpl) Reverse(ctx context.Context, req ports.ReverseRequest) (*ports.IntentResult, error) {
	start := time.Now()
	orig, err := s.txns.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find original transaction: %w", err))
	}
	if orig == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	res, err := s.reverse(ctx, orig, req.Reason)
	s.observe(orig.Type, res, err, time.Since(start))
	return res, err
}

func (s *IntentProcessorImpl) reverse(ctx context.Context, orig *domain.Transaction, reason string) (*ports.IntentResult, error) {
	if orig.IsCompensating() {
		return nil, apperror.ErrNotReversible("entry is itself a reversal")
	}
	if !orig.Type.Reversible() {
		return nil, apperror.ErrNotReversible(fmt.Sprintf("%s entries are final", orig.Type))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lock(ctx, dbTx, orig.AccountID, "account")
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, apperror.ErrAccountInactive()
	}

	exists, err := s.txns.ReversalExists(ctx, dbTx, orig.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check reversal exists: %w", err))
	}
	if exists {
		return nil, apperror.ErrNotReversible("already reversed")
	}

	amount := orig.Amount.Neg()
	if orig.Type == domain.TransactionTypeWithdraw {
		if account.CashEscrow.LessThan(amount) {
			return nil, apperror.ErrNotReversible("cash escrow has already been paid out")
		}
		account.CashEscrow = account.CashEscrow.Sub(amount)
	}
	account.Balance = account.Balance.Add(amount)

	if err := s.accounts.UpdateBalances(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	var ref *string
	if reason != "" {
		ref = &reason
	}
	origID := orig.ID
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Type:         orig.Type,
		Amount:       amount,
		BalanceAfter: account.Balance,
		Reference:    ref,
		ReversesID:   &origID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.txns.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create reversal: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return nil, apperror.ErrRequestCancelled(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("reverses_id", orig.ID.String()).
		Str("account_id", account.ID.String()).
		Str("type", string(txn.Type)).
		Str("amount", domain.FormatAmount(amount)).
		Msg("transaction reversed")

	return &ports.IntentResult{Transaction: *txn, NewBalance: account.Balance}, nil
}

func (s *IntentProcessorImpl) observe(txType domain.TransactionType, res *ports.IntentResult, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := OutcomeCommitted
	switch {
	case err != nil:
		outcome = OutcomeRejected
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus >= 500 {
			outcome = OutcomeFailed
		}
	case res != nil && res.Replayed:
		outcome = OutcomeReplayed
		s.metrics.IncReplay()
	}
	if !txType.Valid() {
		txType = "UNKNOWN"
	}
	s.metrics.ObserveIntent(txType, outcome, elapsed)
}
