package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// KYCServiceImpl implements ports.KYCService. An approved decision is the
// tier-upgrade event; it is applied in the same database transaction that
// records the decision.
type KYCServiceImpl struct {
	kycRepo    ports.KYCRepository
	accounts   ports.AccountRepository
	gate       ports.TierGate
	encSvc     ports.EncryptionService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewKYCService creates a new KYCServiceImpl.
func NewKYCService(
	kycRepo ports.KYCRepository,
	accounts ports.AccountRepository,
	gate ports.TierGate,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *KYCServiceImpl {
	return &KYCServiceImpl{
		kycRepo:    kycRepo,
		accounts:   accounts,
		gate:       gate,
		encSvc:     encSvc,
		transactor: transactor,
		log:        log,
	}
}

// Submit stores a pending request. The document number is kept encrypted.
func (s *KYCServiceImpl) Submit(ctx context.Context, req ports.KYCSubmitRequest) (*domain.KYCSubmission, error) {
	if !req.RequestedTier.Above(domain.TierNone) {
		return nil, apperror.Validation("requested tier must be TIER_1 or TIER_2")
	}
	if strings.TrimSpace(req.DocumentType) == "" || strings.TrimSpace(req.DocumentNumber) == "" {
		return nil, apperror.Validation("document type and number are required")
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !account.Active {
		return nil, apperror.ErrAccountInactive()
	}
	if !req.RequestedTier.Above(account.Tier) {
		return nil, apperror.ErrInvalidTierTransition(
			fmt.Sprintf("account already holds %s", account.Tier))
	}

	ref, err := s.encSvc.Encrypt(strings.TrimSpace(req.DocumentNumber))
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt document reference: %w", err))
	}

	sub := &domain.KYCSubmission{
		ID:             uuid.New(),
		AccountID:      req.AccountID,
		RequestedTier:  req.RequestedTier,
		DocumentType:   strings.ToUpper(strings.TrimSpace(req.DocumentType)),
		DocumentRefEnc: ref,
		Status:         domain.KYCStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.kycRepo.Create(ctx, sub); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create kyc submission: %w", err))
	}
	return sub, nil
}

// Decide records the provider's verdict and, on approval, raises the tier.
func (s *KYCServiceImpl) Decide(ctx context.Context, req ports.KYCDecisionRequest) (*domain.KYCSubmission, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sub, err := s.kycRepo.GetByIDForUpdate(ctx, dbTx, req.SubmissionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock kyc submission: %w", err))
	}
	if sub == nil {
		return nil, apperror.ErrNotFound("kyc submission")
	}
	if !sub.IsPending() {
		return nil, apperror.ErrKYCAlreadyDecided()
	}

	now := time.Now().UTC()
	sub.Status = domain.KYCStatusRejected
	if req.Approved {
		sub.Status = domain.KYCStatusApproved
	}
	sub.ReviewNote = req.Note
	sub.DecidedAt = &now

	if err := s.kycRepo.UpdateDecision(ctx, dbTx, sub); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record kyc decision: %w", err))
	}

	upgraded := false
	if req.Approved {
		if upgraded, err = s.gate.ApplyUpgrade(ctx, dbTx, sub.AccountID, sub.RequestedTier); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("submission_id", sub.ID.String()).
		Str("account_id", sub.AccountID.String()).
		Str("status", string(sub.Status)).
		Bool("tier_upgraded", upgraded).
		Msg("kyc decision recorded")
	return sub, nil
}
