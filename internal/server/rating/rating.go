// Package rating folds a party's ratings into its hotOrNot score.
package rating

import (
	"time"

	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

const (
	Min = 1
	Max = 5
)

// InRange reports whether v is an acceptable rating value.
func InRange(v int) bool {
	return v >= Min && v <= Max
}

// Apply records r in ratings: an existing entry from the same rater is
// overwritten in place, otherwise r is appended. The input slice is not
// modified.
func Apply(ratings []models.Rating, r models.Rating) []models.Rating {
	out := make([]models.Rating, len(ratings), len(ratings)+1)
	copy(out, ratings)

	for i := range out {
		if out[i].RaterID == r.RaterID {
			out[i] = r
			return out
		}
	}
	return append(out, r)
}

// Score is the stored hotOrNot for a rating set: nil for no ratings, the
// single value for one rating, the arithmetic mean otherwise.
func Score(ratings []models.Rating) *float64 {
	if len(ratings) == 0 {
		return nil
	}

	var sum int
	for _, r := range ratings {
		sum += r.Rating
	}
	score := float64(sum) / float64(len(ratings))
	return &score
}

// Present is the hotOrNot shown to callers. A party that has ended with
// exactly one rating shows 0; the stored score and ratings are untouched.
func Present(stored *float64, count int, end, now time.Time) *float64 {
	if count == 1 && end.Before(now) {
		zero := 0.0
		return &zero
	}
	return stored
}

// PresentParty replaces p.HotOrNot with its presented value.
func PresentParty(p *models.Party, now time.Time) {
	p.HotOrNot = Present(p.HotOrNot, p.RatingCount, p.EndDateTime, now)
}

// OwnerScore averages the presented scores of the parties that have ended,
// skipping unrated ones and ones presented as 0. It is 0 when nothing
// qualifies.
func OwnerScore(parties []*models.Party, now time.Time) float64 {
	var (
		sum   float64
		count int
	)
	for _, p := range parties {
		if !p.Ended(now) {
			continue
		}
		s := Present(p.HotOrNot, p.RatingCount, p.EndDateTime, now)
		if s == nil || *s == 0 {
			continue
		}
		sum += *s
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
