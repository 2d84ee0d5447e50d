package service

import (
	"context"
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

// DefaultTierWindow is the rolling window ceilings are measured over.
const DefaultTierWindow = 7 * 24 * time.Hour

// TierGateImpl implements ports.TierGate and ports.TierService. Usage is
// always summed from the transaction log; there are no counters to drift.
type TierGateImpl struct {
	accounts   ports.AccountRepository
	txns       ports.TransactionRepository
	transactor ports.DBTransactor
	policy     domain.TierPolicy
	window     time.Duration
	log        zerolog.Logger
}

// NewTierGate creates a new TierGateImpl. A nil policy falls back to
// domain.DefaultTierPolicy.
func NewTierGate(
	accounts ports.AccountRepository,
	txns ports.TransactionRepository,
	transactor ports.DBTransactor,
	policy domain.TierPolicy,
	window time.Duration,
	log zerolog.Logger,
) *TierGateImpl {
	if policy == nil {
		policy = domain.DefaultTierPolicy()
	}
	if window <= 0 {
		window = DefaultTierWindow
	}
	return &TierGateImpl{
		accounts:   accounts,
		txns:       txns,
		transactor: transactor,
		policy:     policy,
		window:     window,
		log:        log,
	}
}

// CheckWithdrawal must run with the account locked in tx.
func (g *TierGateImpl) CheckWithdrawal(ctx context.Context, tx pgx.Tx, account *domain.Account, amount decimal.Decimal) (*ports.TierDecision, error) {
	limit := g.policy.LimitsFor(account.Tier).WeeklyWithdrawal
	return g.check(ctx, tx, account, domain.TransactionTypeWithdraw, amount, g.window, limit)
}

// CheckVoteSpend must run with the account locked in tx. A non-positive
// window uses the configured one.
func (g *TierGateImpl) CheckVoteSpend(ctx context.Context, tx pgx.Tx, account *domain.Account, amount decimal.Decimal, window time.Duration) (*ports.TierDecision, error) {
	if window <= 0 {
		window = g.window
	}
	limit := g.policy.LimitsFor(account.Tier).WeeklyVoteSpend
	return g.check(ctx, tx, account, domain.TransactionTypeVote, amount, window, limit)
}

func (g *TierGateImpl) check(
	ctx context.Context,
	tx pgx.Tx,
	account *domain.Account,
	txType domain.TransactionType,
	amount decimal.Decimal,
	window time.Duration,
	ceiling decimal.Decimal,
) (*ports.TierDecision, error) {
	since := time.Now().UTC().Add(-window)
	sum, err := g.txns.SumSince(ctx, tx, account.ID, txType, since)
	if err != nil {
		return nil, fmt.Errorf("sum %s since %s: %w", txType, since.Format(time.RFC3339), err)
	}

	// Debits are negative and reversals positive, so the negated sum is net usage.
	used := sum.Neg()
	if used.IsNegative() {
		used = decimal.Zero
	}
	remaining := ceiling.Sub(used)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	d := &ports.TierDecision{
		Allowed:   used.Add(amount).LessThanOrEqual(ceiling),
		Tier:      string(account.Tier),
		Ceiling:   ceiling,
		Used:      used,
		Remaining: remaining,
	}
	if !d.Allowed {
		d.Reason = fmt.Sprintf("%s of %s exceeds the %s ceiling of %s (%s used in the last %s)",
			txType, domain.FormatAmount(amount), account.Tier, domain.FormatAmount(ceiling),
			domain.FormatAmount(used), window)
	}
	return d, nil
}

// ApplyUpgrade raises the tier within tx. Requests that would not raise it
// are ignored so KYC events can be redelivered.
func (g *TierGateImpl) ApplyUpgrade(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, tier domain.VerificationTier) (bool, error) {
	if !tier.Valid() {
		return false, apperror.ErrInvalidTierTransition(fmt.Sprintf("unknown tier %q", tier))
	}
	account, err := g.accounts.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return false, apperror.ErrNotFound("account")
	}
	if !tier.Above(account.Tier) {
		g.log.Info().
			Str("account_id", accountID.String()).
			Str("current", string(account.Tier)).
			Str("requested", string(tier)).
			Msg("ignoring tier upgrade that does not raise the tier")
		return false, nil
	}
	if err := g.accounts.UpdateTier(ctx, tx, accountID, tier); err != nil {
		return false, apperror.InternalError(fmt.Errorf("update tier: %w", err))
	}
	g.log.Info().
		Str("account_id", accountID.String()).
		Str("from", string(account.Tier)).
		Str("to", string(tier)).
		Msg("tier upgraded")
	return true, nil
}

// Limits reports both ceilings at the account's current tier.
func (g *TierGateImpl) Limits(ctx context.Context, accountID uuid.UUID) (*ports.TierLimitsView, error) {
	account, err := g.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	withdraw, err := g.CheckWithdrawal(ctx, nil, account, decimal.Zero)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	vote, err := g.CheckVoteSpend(ctx, nil, account, decimal.Zero, g.window)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return &ports.TierLimitsView{
		Tier:       account.Tier,
		Withdrawal: *withdraw,
		VoteSpend:  *vote,
		Window:     g.window,
	}, nil
}

// Revoke lowers the tier. It never raises one.
func (g *TierGateImpl) Revoke(ctx context.Context, accountID uuid.UUID, tier domain.VerificationTier, reason string) (*domain.Account, error) {
	if !tier.Valid() {
		return nil, apperror.ErrInvalidTierTransition(fmt.Sprintf("unknown tier %q", tier))
	}

	dbTx, err := g.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := g.accounts.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !account.Tier.Above(tier) {
		return nil, apperror.ErrInvalidTierTransition(
			fmt.Sprintf("revocation must lower the tier; account is %s", account.Tier))
	}
	if err := g.accounts.UpdateTier(ctx, dbTx, accountID, tier); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update tier: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	g.log.Warn().
		Str("account_id", accountID.String()).
		Str("from", string(account.Tier)).
		Str("to", string(tier)).
		Str("reason", reason).
		Msg("tier revoked")

	account.Tier = tier
	return account, nil
}
