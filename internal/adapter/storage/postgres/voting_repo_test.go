package postgres

import (
	"context"
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

func roundColumnsList() []string {
	return []string{"id", "name", "token_cost", "max_votes_per_user", "starts_at", "ends_at", "status", "created_at"}
}

func newTestRound() *domain.VotingRound {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.VotingRound{
		ID:              uuid.New(),
		Name:            "Ward 7 council",
		TokenCost:       decimal.NewFromInt(2),
		MaxVotesPerUser: 10,
		StartsAt:        now.Add(-time.Hour),
		EndsAt:          now.Add(time.Hour),
		Status:          domain.RoundStatusActive,
		CreatedAt:       now,
	}
}

func TestRoundRepo_CreateAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRoundRepo(mock)
	r := newTestRound()

	mock.ExpectExec("INSERT INTO voting_rounds").
		WithArgs(r.ID, r.Name, r.TokenCost, r.MaxVotesPerUser, r.StartsAt, r.EndsAt, r.Status, r.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM voting_rounds WHERE id").
		WithArgs(r.ID).
		WillReturnRows(pgxmock.NewRows(roundColumnsList()).
			AddRow(r.ID, r.Name, r.TokenCost, r.MaxVotesPerUser, r.StartsAt, r.EndsAt, r.Status, r.CreatedAt))

	require.NoError(t, repo.Create(context.Background(), r))
	got, err := repo.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.MaxVotesPerUser)
	assert.Equal(t, "2.00", got.TokenCost.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoundRepo_UpdateStatus_SkipsEnded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRoundRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE voting_rounds SET status = \\$1 WHERE id = \\$2 AND status <> 'ENDED'").
		WithArgs(domain.RoundStatusEnded, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateStatus(context.Background(), id, domain.RoundStatusEnded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepo_CreateAndCumulativeWeight(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoteRepo(mock)
	v := &domain.Vote{
		ID:            uuid.New(),
		AccountID:     uuid.New(),
		CandidateID:   uuid.New(),
		RoundID:       uuid.New(),
		Weight:        6,
		TransactionID: uuid.New(),
		CreatedAt:     time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(weight\\), 0\\) FROM votes").
		WithArgs(v.AccountID, v.CandidateID, v.RoundID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(4))
	mock.ExpectExec("INSERT INTO votes").
		WithArgs(v.ID, v.AccountID, v.CandidateID, v.RoundID, v.Weight, v.TransactionID, v.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	total, err := repo.CumulativeWeight(context.Background(), tx, v.AccountID, v.CandidateID, v.RoundID)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.NoError(t, repo.Create(context.Background(), tx, v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepo_SumWeightByCandidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoteRepo(mock)
	cid := uuid.New()

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(weight\\), 0\\) FROM votes WHERE candidate_id").
		WithArgs(cid).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(37)))

	total, err := repo.SumWeightByCandidate(context.Background(), nil, cid)
	require.NoError(t, err)
	assert.Equal(t, int64(37), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateRepo_RecountUnderRowLock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	candidates := NewCandidateRepo(mock)
	votes := NewVoteRepo(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM candidates WHERE id = \\$1 FOR UPDATE").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "vote_tally", "endorsement_count", "integrity", "competence", "commitment",
			"overall_score", "vetting_status", "created_at", "updated_at",
		}).AddRow(id, "Ada", int64(9), 0, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, domain.VettingQualified, now, now))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(weight\\), 0\\) FROM votes WHERE candidate_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(11)))
	mock.ExpectExec("UPDATE candidates SET vote_tally = \\$1").
		WithArgs(int64(11), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	c, err := candidates.GetByIDForUpdate(ctx, tx, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(9), c.VoteTally)

	total, err := votes.SumWeightByCandidate(ctx, tx, id)
	require.NoError(t, err)
	require.NoError(t, candidates.SetTally(ctx, tx, id, total))
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateRepo_GetByIDForUpdate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCandidateRepo(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM candidates WHERE id = \\$1 FOR UPDATE").
		WillReturnError(pgx.ErrNoRows)

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	c, err := repo.GetByIDForUpdate(context.Background(), tx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateRepo_IncrementTally(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCandidateRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE candidates SET vote_tally = vote_tally \\+ \\$1").
		WithArgs(5, id).
		WillReturnRows(pgxmock.NewRows([]string{"vote_tally"}).AddRow(int64(17)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	tally, err := repo.IncrementTally(context.Background(), tx, id, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(17), tally)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateRepo_UpdateVetting_CompareAndSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCandidateRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE candidates SET vetting_status").
		WithArgs(domain.VettingScreening, id, domain.VettingPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE candidates SET vetting_status").
		WithArgs(domain.VettingScreening, id, domain.VettingPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.UpdateVetting(context.Background(), id, domain.VettingPending, domain.VettingScreening)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateVetting(context.Background(), id, domain.VettingPending, domain.VettingScreening)
	require.NoError(t, err)
	assert.False(t, ok, "second writer loses the race")
}

func TestCandidateRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCandidateRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM candidates WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "vote_tally", "endorsement_count", "integrity",
			"competence", "commitment", "overall_score", "vetting_status", "created_at", "updated_at"}))

	c, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestCandidateRepo_UpdateScores(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCandidateRepo(mock)
	id := uuid.New()
	cr := domain.ComputeCredibility([]domain.Endorsement{{Category: domain.CategoryIntegrity, Rating: 9}})

	mock.ExpectExec("UPDATE candidates\\s+SET integrity").
		WithArgs(cr.Integrity, cr.Competence, cr.Commitment, cr.Overall, cr.Count, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateScores(context.Background(), id, cr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndorsementRepo(mock)
	e := &domain.Endorsement{
		ID:                uuid.New(),
		CandidateID:       uuid.New(),
		EndorserAccountID: uuid.New(),
		Category:          domain.CategoryCompetence,
		Rating:            7,
		CreatedAt:         time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO endorsements .+ ON CONFLICT .+ DO NOTHING").
		WithArgs(e.ID, e.CandidateID, e.EndorserAccountID, e.Category, e.Rating, e.Comment, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.Create(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepo_ListByCandidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndorsementRepo(mock)
	cid := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM endorsements WHERE candidate_id").
		WithArgs(cid).
		WillReturnRows(pgxmock.NewRows([]string{"id", "candidate_id", "endorser_account_id", "category", "rating", "comment", "created_at"}).
			AddRow(uuid.New(), cid, uuid.New(), domain.CategoryIntegrity, 8, (*string)(nil), now).
			AddRow(uuid.New(), cid, uuid.New(), domain.CategoryCommitment, 6, strPtr("shows up"), now))

	out, err := repo.ListByCandidate(context.Background(), cid)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 8, out[0].Rating)
	assert.Equal(t, "shows up", *out[1].Comment)
}
