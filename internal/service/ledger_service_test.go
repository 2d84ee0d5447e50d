package service

import (
	"context"
	"testing"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/internal/core/ports/mocks"
	"civic-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc        ports.LedgerService
	accounts   *mocks.MockAccountRepository
	txns       *mocks.MockTransactionRepository
	transactor *mocks.MockDBTransactor
	tx         *mockTx
}

func setupLedger(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		accounts:   mocks.NewMockAccountRepository(ctrl),
		txns:       mocks.NewMockTransactionRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		tx:         &mockTx{},
	}
	d.svc = NewLedgerService(d.accounts, d.txns, d.transactor, newTestLogger())
	return d
}

func TestLedger_GetWallet_NotFound(t *testing.T) {
	d := setupLedger(t)
	id := uuid.New()
	d.accounts.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

	_, err := d.svc.GetWallet(context.Background(), id)
	assertCode(t, err, apperror.CodeNotFound)
}

func TestLedger_ListTransactions_ClampsLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{20, 20},
		{10000, MaxListLimit},
	}

	for _, tt := range tests {
		d := setupLedger(t)
		id := uuid.New()
		d.txns.EXPECT().List(gomock.Any(), ports.TransactionListParams{AccountID: id, Limit: tt.want}).Return(nil, nil)

		_, err := d.svc.ListTransactions(context.Background(), ports.TransactionListParams{AccountID: id, Limit: tt.in})
		require.NoError(t, err)
	}
}

func ledgerEntries(amounts ...string) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(amounts))
	running := dec("0")
	for i, a := range amounts {
		running = running.Add(dec(a))
		out = append(out, domain.Transaction{
			ID:           uuid.New(),
			Seq:          int64(i + 1),
			Amount:       dec(a),
			BalanceAfter: running,
			CreatedAt:    time.Now(),
		})
	}
	return out
}

func TestLedger_Reconcile(t *testing.T) {
	tests := []struct {
		name       string
		balance    string
		entries    []domain.Transaction
		consistent bool
	}{
		{"empty account", "0", nil, true},
		{"matching log", "65.50", ledgerEntries("100", "-30", "-4.50"), true},
		{"cached balance drifted", "70", ledgerEntries("100", "-30", "-4.50"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupLedger(t)
			acc := testAccount(tt.balance)
			d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
			gomock.InOrder(
				d.accounts.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, acc.ID).Return(acc, nil),
				d.txns.EXPECT().ListAll(gomock.Any(), d.tx, acc.ID).Return(tt.entries, nil),
			)

			r, err := d.svc.Reconcile(context.Background(), acc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.consistent, r.Consistent)
			assert.Equal(t, len(tt.entries), r.Entries)
		})
	}
}

func TestLedger_Reconcile_NotFound(t *testing.T) {
	d := setupLedger(t)
	id := uuid.New()
	d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.accounts.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, id).Return(nil, nil)

	_, err := d.svc.Reconcile(context.Background(), id)
	assertCode(t, err, apperror.CodeNotFound)
	assert.False(t, d.tx.committed)
}

func TestLedger_ReconcileAll(t *testing.T) {
	d := setupLedger(t)
	a := testAccount("100")
	b := testAccount("1")

	d.accounts.EXPECT().ListIDs(gomock.Any()).Return([]uuid.UUID{a.ID, b.ID}, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil).Times(2)
	d.accounts.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, a.ID).Return(a, nil)
	d.accounts.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, b.ID).Return(b, nil)
	d.txns.EXPECT().ListAll(gomock.Any(), d.tx, a.ID).Return(ledgerEntries("100"), nil)
	d.txns.EXPECT().ListAll(gomock.Any(), d.tx, b.ID).Return(ledgerEntries("2"), nil)

	reports, err := d.svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.True(t, reports[0].Consistent)
	assert.False(t, reports[1].Consistent)
}

func TestLedger_ReconcileAll_Cancelled(t *testing.T) {
	d := setupLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.accounts.EXPECT().ListIDs(gomock.Any()).Return([]uuid.UUID{uuid.New()}, nil)

	_, err := d.svc.ReconcileAll(ctx)
	assertCode(t, err, "SYS_004")
}

func TestLedger_Deactivate(t *testing.T) {
	d := setupLedger(t)
	acc := testAccount("12")

	d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.accounts.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, acc.ID).Return(acc, nil)
	d.accounts.EXPECT().SetActive(gomock.Any(), d.tx, acc.ID, false).Return(nil)

	got, err := d.svc.Deactivate(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "12.00", domain.FormatAmount(got.Balance), "balance is retained")
	assert.True(t, d.tx.committed)
}

func TestLedger_Deactivate_AlreadyInactive(t *testing.T) {
	d := setupLedger(t)
	acc := testAccount("0")
	acc.Active = false

	d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.accounts.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, acc.ID).Return(acc, nil)

	got, err := d.svc.Deactivate(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.False(t, d.tx.committed)
}
