package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func endorse(cat EndorsementCategory, rating int) Endorsement {
	return Endorsement{Category: cat, Rating: rating}
}

func TestComputeCredibility_Empty(t *testing.T) {
	cr := ComputeCredibility(nil)
	assert.Equal(t, "0.00", FormatAmount(cr.Overall))
	assert.Equal(t, 0, cr.Count)
}

func TestComputeCredibility_MeanTimesTen(t *testing.T) {
	cr := ComputeCredibility([]Endorsement{
		endorse(CategoryIntegrity, 8),
		endorse(CategoryIntegrity, 9),
		endorse(CategoryCompetence, 7),
		endorse(CategoryCommitment, 10),
	})

	assert.Equal(t, "85.00", FormatAmount(cr.Integrity))
	assert.Equal(t, "70.00", FormatAmount(cr.Competence))
	assert.Equal(t, "100.00", FormatAmount(cr.Commitment))
	assert.Equal(t, "85.00", FormatAmount(cr.Overall))
	assert.Equal(t, 4, cr.Count)
}

func TestComputeCredibility_MissingCategoryScoresZero(t *testing.T) {
	cr := ComputeCredibility([]Endorsement{
		endorse(CategoryIntegrity, 10),
		endorse(CategoryCompetence, 10),
	})

	assert.True(t, cr.Commitment.IsZero())
	assert.Equal(t, "66.67", FormatAmount(cr.Overall))
}

func TestComputeCredibility_IgnoresOutOfRange(t *testing.T) {
	cr := ComputeCredibility([]Endorsement{
		endorse(CategoryIntegrity, 11),
		endorse(CategoryIntegrity, 0),
		endorse(EndorsementCategory("CHARISMA"), 5),
		endorse(CategoryIntegrity, 4),
	})

	assert.Equal(t, "40.00", FormatAmount(cr.Integrity))
	assert.Equal(t, 1, cr.Count)
}

func TestComputeCredibility_Idempotent(t *testing.T) {
	in := []Endorsement{endorse(CategoryCompetence, 3), endorse(CategoryCommitment, 6)}
	a := ComputeCredibility(in)
	b := ComputeCredibility(in)
	assert.True(t, a.Overall.Equal(b.Overall))
	assert.Equal(t, "30.00", FormatAmount(a.Overall))
}
