package domain

import "github.com/shopspring/decimal"

var (
	scoreCeiling  = decimal.NewFromInt(100)
	ratingToScore = decimal.NewFromInt(10)
	categoryCount = decimal.NewFromInt(3)
	scorePlaces   = int32(2)
)

// Credibility is the derived score set of a candidate, each on 0..100.
type Credibility struct {
	Integrity  decimal.Decimal `json:"integrity"`
	Competence decimal.Decimal `json:"competence"`
	Commitment decimal.Decimal `json:"commitment"`
	Overall    decimal.Decimal `json:"overall"`
	Count      int             `json:"endorsement_count"`
}

// ComputeCredibility derives scores from endorsements. A category score is
// the mean rating times ten; a category without endorsements scores 0. The
// overall score is the mean of the three category scores. Ratings outside
// 1..10 and unknown categories are ignored.
func ComputeCredibility(endorsements []Endorsement) Credibility {
	sums := map[EndorsementCategory]int64{}
	counts := map[EndorsementCategory]int64{}
	total := 0
	for _, e := range endorsements {
		if !e.Category.Valid() || e.Rating < MinEndorsementRating || e.Rating > MaxEndorsementRating {
			continue
		}
		sums[e.Category] += int64(e.Rating)
		counts[e.Category]++
		total++
	}

	sub := func(c EndorsementCategory) decimal.Decimal {
		if counts[c] == 0 {
			return decimal.Zero
		}
		mean := decimal.NewFromInt(sums[c]).Div(decimal.NewFromInt(counts[c]))
		return clampScore(mean.Mul(ratingToScore).Round(scorePlaces))
	}

	cr := Credibility{
		Integrity:  sub(CategoryIntegrity),
		Competence: sub(CategoryCompetence),
		Commitment: sub(CategoryCommitment),
		Count:      total,
	}
	cr.Overall = clampScore(cr.Integrity.Add(cr.Competence).Add(cr.Commitment).Div(categoryCount).Round(scorePlaces))
	return cr
}

func clampScore(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(scoreCeiling) {
		return scoreCeiling
	}
	return v
}
