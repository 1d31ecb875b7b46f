package rating

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

func rate(rater string, v int) models.Rating {
	return models.Rating{PartyID: "p1", RaterID: rater, Rating: v}
}

func ptr(f float64) *float64 { return &f }

func TestApply_AppendsNewRater(t *testing.T) {
	rs := Apply(nil, rate("a", 5))
	rs = Apply(rs, rate("b", 3))

	require.Len(t, rs, 2)
	assert.Equal(t, "a", rs[0].RaterID)
	assert.Equal(t, "b", rs[1].RaterID)
}

func TestApply_SameRaterOverwritesInPlace(t *testing.T) {
	rs := []models.Rating{rate("a", 5), rate("b", 3)}

	out := Apply(rs, models.Rating{PartyID: "p1", RaterID: "a", Rating: 1, Review: "changed my mind"})

	require.Len(t, out, 2, "count must not change when a rater re-rates")
	assert.Equal(t, 1, out[0].Rating)
	assert.Equal(t, "changed my mind", out[0].Review)
	assert.Equal(t, 5, rs[0].Rating, "input slice must not be modified")
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		ratings []models.Rating
		want    *float64
	}{
		{name: "no ratings leaves score unset", ratings: nil, want: nil},
		{name: "single rating", ratings: []models.Rating{rate("a", 5)}, want: ptr(5)},
		{name: "mean of three", ratings: []models.Rating{rate("a", 5), rate("b", 3), rate("c", 4)}, want: ptr(4)},
		{name: "fractional mean", ratings: []models.Rating{rate("a", 5), rate("b", 4)}, want: ptr(4.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.ratings)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestScore_UsesOverwrittenValue(t *testing.T) {
	rs := []models.Rating{rate("a", 5), rate("b", 3)}
	rs = Apply(rs, rate("a", 1))

	got := Score(rs)
	require.NotNil(t, got)
	assert.InDelta(t, 2.0, *got, 1e-9)
}

// An ended party with exactly one rating is shown as 0 even though the
// stored score is that rating. This asymmetry is intentional.
func TestPresent_EndedWithSingleRatingShowsZero(t *testing.T) {
	rs := []models.Rating{rate("a", 5)}
	stored := Score(rs)

	got := Present(stored, len(rs), now.Add(-time.Hour), now)

	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)
	assert.Equal(t, 5.0, *stored, "stored score must be untouched")
	assert.Equal(t, 5, rs[0].Rating, "ratings must be untouched")
}

func TestPresent_OtherCasesPassThrough(t *testing.T) {
	running := now.Add(time.Hour)
	ended := now.Add(-time.Hour)

	assert.Equal(t, 5.0, *Present(ptr(5), 1, running, now))
	assert.Equal(t, 4.0, *Present(ptr(4), 3, ended, now))
	assert.Nil(t, Present(nil, 0, ended, now))
}

func TestPresentParty(t *testing.T) {
	p := &models.Party{HotOrNot: ptr(3), RatingCount: 1, EndDateTime: now.Add(-time.Minute)}
	PresentParty(p, now)
	require.NotNil(t, p.HotOrNot)
	assert.Equal(t, 0.0, *p.HotOrNot)
}

func TestOwnerScore(t *testing.T) {
	ended := now.Add(-time.Hour)
	running := now.Add(time.Hour)

	parties := []*models.Party{
		{HotOrNot: ptr(4), RatingCount: 2, EndDateTime: ended},
		{HotOrNot: ptr(2), RatingCount: 3, EndDateTime: ended},
		{HotOrNot: ptr(5), RatingCount: 1, EndDateTime: ended},   // presented as 0, skipped
		{HotOrNot: ptr(1), RatingCount: 4, EndDateTime: running}, // not ended, skipped
		{HotOrNot: nil, RatingCount: 0, EndDateTime: ended},      // unrated, skipped
	}

	assert.InDelta(t, 3.0, OwnerScore(parties, now), 1e-9)
	assert.Equal(t, 0.0, OwnerScore(nil, now))
	assert.Equal(t, 0.0, OwnerScore(parties[3:], now))
}

func TestInRange(t *testing.T) {
	assert.False(t, InRange(0))
	assert.True(t, InRange(1))
	assert.True(t, InRange(5))
	assert.False(t, InRange(6))
}
