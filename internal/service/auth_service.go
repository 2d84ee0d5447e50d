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
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	participantRepo ports.ParticipantRepository
	accountRepo     ports.AccountRepository
	hashSvc         ports.HashService
	tokenSvc        ports.TokenService
	admins          map[string]struct{}
}

// NewAuthService creates a new AuthServiceImpl. Usernames listed in admins
// register with the ADMIN role.
func NewAuthService(
	participantRepo ports.ParticipantRepository,
	accountRepo ports.AccountRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	admins []string,
) *AuthServiceImpl {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		set[strings.ToLower(a)] = struct{}{}
	}
	return &AuthServiceImpl{
		participantRepo: participantRepo,
		accountRepo:     accountRepo,
		hashSvc:         hashSvc,
		tokenSvc:        tokenSvc,
		admins:          set,
	}
}

// Register creates a participant and the SUP account that belongs to it.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	// Check username uniqueness
	existing, err := s.participantRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	role := domain.RoleParticipant
	if _, ok := s.admins[strings.ToLower(req.Username)]; ok {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	participant := &domain.Participant{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		Role:         role,
		CreatedAt:    now,
	}
	account := domain.NewAccount(participant.ID, now)
	participant.AccountID = account.ID

	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create participant: %w", err))
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	return &ports.RegisterResponse{
		ParticipantID: participant.ID,
		AccountID:     account.ID,
	}, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	participant, err := s.participantRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find participant: %w", err))
	}
	if participant == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Verify password
	valid, err := s.hashSvc.Verify(password, participant.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Deactivated accounts may still sign in and read their history.
	token, expiry, err := s.tokenSvc.Generate(participant.ID, participant.AccountID, participant.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
