package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount() *domain.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Account{
		ID:             uuid.New(),
		ParticipantID:  uuid.New(),
		Balance:        decimal.NewFromInt(100),
		CashEscrow:     decimal.Zero,
		Tier:           domain.TierNone,
		LifetimeEarned: decimal.NewFromInt(100),
		Version:        3,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func accountColumnsList() []string {
	return []string{"id", "participant_id", "balance", "cash_escrow", "tier", "lifetime_earned",
		"version", "active", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnsList()).AddRow(
		a.ID, a.ParticipantID, a.Balance, a.CashEscrow, a.Tier, a.LifetimeEarned,
		a.Version, a.Active, a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.ParticipantID, a.Balance, a.CashEscrow, a.Tier, a.LifetimeEarned,
			a.Version, a.Active, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id").
		WithArgs(a.ID).
		WillReturnRows(accountRow(a))

	result, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "100.00", result.Balance.StringFixed(2))
	assert.Equal(t, int64(3), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(accountColumnsList()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestAccountRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id .+ FOR UPDATE").
		WithArgs(a.ID).
		WillReturnRows(accountRow(a))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIDForUpdate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id .+ FOR UPDATE").
		WillReturnError(pgx.ErrNoRows)

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	result, err := repo.GetByIDForUpdate(context.Background(), tx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalances_BumpsVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts\\s+SET balance .+ version = version \\+ 1").
		WithArgs(a.Balance, a.CashEscrow, a.LifetimeEarned, a.ID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateBalances(context.Background(), tx, a))
	assert.Equal(t, int64(4), a.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalances_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").
		WithArgs(a.Balance, a.CashEscrow, a.LifetimeEarned, a.ID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalances(context.Background(), tx, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionConflict))
	assert.Equal(t, int64(3), a.Version)
}

func TestAccountRepo_UpdateTier_WithoutTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE accounts SET tier").
		WithArgs(domain.Tier1, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateTier(context.Background(), nil, id, domain.Tier1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_SetActive_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectExec("UPDATE accounts SET active").
		WithArgs(false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.SetActive(context.Background(), nil, uuid.New(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestAccountRepo_ListIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT id FROM accounts").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
}
