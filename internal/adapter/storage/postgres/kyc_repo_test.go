package postgres

import (
	"context"
	"testing"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kycColumnsList() []string {
	return []string{"id", "account_id", "requested_tier", "document_type", "document_ref_enc", "status",
		"review_note", "created_at", "decided_at"}
}

func TestKYCRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKYCRepo(mock)
	k := &domain.KYCSubmission{
		ID:             uuid.New(),
		AccountID:      uuid.New(),
		RequestedTier:  domain.Tier1,
		DocumentType:   "NATIONAL_ID",
		DocumentRefEnc: "enc",
		Status:         domain.KYCStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM kyc_submissions WHERE id = \\$1 FOR UPDATE").
		WithArgs(k.ID).
		WillReturnRows(pgxmock.NewRows(kycColumnsList()).AddRow(
			k.ID, k.AccountID, k.RequestedTier, k.DocumentType, k.DocumentRefEnc, k.Status,
			k.ReviewNote, k.CreatedAt, k.DecidedAt,
		))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	got, err := repo.GetByIDForUpdate(context.Background(), tx, k.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsPending())
	assert.Equal(t, domain.Tier1, got.RequestedTier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKYCRepo_UpdateDecision(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewKYCRepo(mock)
	decided := time.Now().UTC()
	k := &domain.KYCSubmission{ID: uuid.New(), Status: domain.KYCStatusApproved, DecidedAt: &decided}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE kyc_submissions SET status").
		WithArgs(k.Status, k.ReviewNote, k.DecidedAt, k.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateDecision(context.Background(), tx, k))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantRepo_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewParticipantRepo(mock)
	p := &domain.Participant{
		ID:           uuid.New(),
		Username:     "amara",
		PasswordHash: "$argon2id$...",
		DisplayName:  "Amara",
		Role:         domain.RoleParticipant,
		AccountID:    uuid.New(),
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectQuery("SELECT .+ FROM participants WHERE username").
		WithArgs("amara").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "display_name", "role", "account_id", "created_at"}).
			AddRow(p.ID, p.Username, p.PasswordHash, p.DisplayName, p.Role, p.AccountID, p.CreatedAt))

	got, err := repo.GetByUsername(context.Background(), "amara")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.AccountID, got.AccountID)
	assert.False(t, got.IsAdmin())
}

func TestParticipantRepo_GetByUsername_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewParticipantRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM participants WHERE username").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "display_name", "role", "account_id", "created_at"}))

	got, err := repo.GetByUsername(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
