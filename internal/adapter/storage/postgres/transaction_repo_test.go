package postgres

import (
	"context"
	"testing"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestTransaction(accountID uuid.UUID) *domain.Transaction {
	return &domain.Transaction{
		ID:           uuid.New(),
		Seq:          7,
		AccountID:    accountID,
		Type:         domain.TransactionTypeVote,
		Amount:       decimal.NewFromInt(-10),
		BalanceAfter: decimal.NewFromInt(90),
		Reference:    strPtr("candidate-1"),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func txColumns() []string {
	return []string{"id", "seq", "account_id", "type", "amount", "balance_after", "reference",
		"counterparty_id", "reverses_id", "created_at"}
}

func txRow(rows *pgxmock.Rows, t *domain.Transaction) *pgxmock.Rows {
	return rows.AddRow(
		t.ID, t.Seq, t.AccountID, t.Type, t.Amount, t.BalanceAfter, t.Reference,
		t.CounterpartyID, t.ReversesID, t.CreatedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())
	txn.Seq = 0

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO transactions .+ RETURNING seq").
		WithArgs(
			txn.ID, txn.AccountID, txn.Type, txn.Amount, txn.BalanceAfter, txn.Reference,
			txn.CounterpartyID, txn.ReversesID, txn.CreatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(42)))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, txn)
	require.NoError(t, err)
	assert.Equal(t, int64(42), txn.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(txRow(pgxmock.NewRows(txColumns()), txn))

	result, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, "-10.00", result.Amount.StringFixed(2))
	assert.Equal(t, "candidate-1", *result.Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_NewestFirstWithSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	accountID := uuid.New()
	since := time.Now().Add(-time.Hour).UTC()
	newer := newTestTransaction(accountID)
	older := newTestTransaction(accountID)
	older.Seq = 3

	rows := pgxmock.NewRows(txColumns())
	txRow(rows, newer)
	txRow(rows, older)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE account_id = \\$1 AND created_at >= \\$2 ORDER BY seq DESC LIMIT \\$3").
		WithArgs(accountID, since, 50).
		WillReturnRows(rows)

	txns, err := repo.List(context.Background(), ports.TransactionListParams{AccountID: accountID, Since: &since, Limit: 50})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, newer.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListAll_AppendOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	accountID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE account_id = \\$1 ORDER BY seq ASC").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	txns, err := repo.ListAll(context.Background(), nil, accountID)
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.NotNil(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListAll_InTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE account_id = \\$1 ORDER BY seq ASC").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows(txColumns()))
	mock.ExpectRollback()

	ctx := context.Background()
	dbTx, err := mock.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.ListAll(ctx, dbTx, accountID)
	require.NoError(t, err)
	require.NoError(t, dbTx.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumSince_InTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	accountID := uuid.New()
	since := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM transactions").
		WithArgs(accountID, domain.TransactionTypeWithdraw, since).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(decimal.RequireFromString("-300.50")))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	sum, err := repo.SumSince(context.Background(), dbTx, accountID, domain.TransactionTypeWithdraw, since)
	require.NoError(t, err)
	assert.Equal(t, "-300.50", sum.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ReversalExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	origID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(origID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ReversalExists(context.Background(), nil, origID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
