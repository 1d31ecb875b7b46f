package inmemory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

type partyRepo struct {
	s *Store
}

// view returns a detached copy of p with its derived rating count.
func (r *partyRepo) view(p models.Party) *models.Party {
	if p.HotOrNot != nil {
		v := *p.HotOrNot
		p.HotOrNot = &v
	}
	p.RatingCount = len(r.s.data.ratings[p.ID])
	return &p
}

func (r *partyRepo) Create(ctx context.Context, p *models.Party) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.users[p.CreatedBy]; !ok {
		return fmt.Errorf("db error: party references unknown user %q", p.CreatedBy)
	}
	if _, ok := r.s.data.parties[p.ID]; ok {
		return fmt.Errorf("db error: duplicate party id %q", p.ID)
	}
	for _, existing := range r.s.data.parties {
		if existing.ShortID == p.ShortID {
			return common.ErrShortIDTaken
		}
	}

	now := r.s.clock.Now()
	p.Version = 1
	p.CreatedAt, p.UpdatedAt = now, now
	p.HotOrNot = nil
	p.RatingCount = 0

	r.s.data.parties[p.ID] = *r.view(*p)
	return nil
}

func (r *partyRepo) ShortIDExists(ctx context.Context, code string) (bool, error) {
	defer r.s.lock(ctx)()

	for _, p := range r.s.data.parties {
		if p.ShortID == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *partyRepo) GetByID(ctx context.Context, id string) (*models.Party, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.parties[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.view(p), nil
}

func (r *partyRepo) GetByShortID(ctx context.Context, code string) (*models.Party, error) {
	defer r.s.lock(ctx)()

	for _, p := range r.s.data.parties {
		if p.ShortID == code {
			return r.view(p), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *partyRepo) Update(ctx context.Context, p *models.Party) error {
	defer r.s.lock(ctx)()

	cur, ok := r.s.data.parties[p.ID]
	if !ok || cur.Version != p.Version {
		return common.ErrVersionConflict
	}

	cur.Title = p.Title
	cur.Bourough = p.Bourough
	cur.Location = p.Location
	cur.Vibe = p.Vibe
	cur.VenueSize = p.VenueSize
	cur.CrowdControl = p.CrowdControl
	cur.CrowdCaution = p.CrowdCaution
	cur.Price = p.Price
	cur.About = p.About
	cur.Type = p.Type
	cur.StartDateTime = p.StartDateTime
	cur.EndDateTime = p.EndDateTime
	cur.Version++
	cur.UpdatedAt = r.s.clock.Now()
	r.s.data.parties[p.ID] = cur

	p.Version, p.UpdatedAt = cur.Version, cur.UpdatedAt
	return nil
}

func (r *partyRepo) UpdateScore(ctx context.Context, id string, score *float64, version int64) (int64, error) {
	defer r.s.lock(ctx)()

	cur, ok := r.s.data.parties[id]
	if !ok || cur.Version != version {
		return 0, common.ErrVersionConflict
	}

	cur.HotOrNot = nil
	if score != nil {
		v := *score
		cur.HotOrNot = &v
	}
	cur.Version++
	cur.UpdatedAt = r.s.clock.Now()
	r.s.data.parties[id] = cur
	return cur.Version, nil
}

func (r *partyRepo) Delete(ctx context.Context, id, ownerID string) error {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.parties[id]
	if !ok || p.CreatedBy != ownerID {
		return common.ErrorNotFound
	}
	delete(r.s.data.parties, id)
	delete(r.s.data.ratings, id)
	return nil
}

func (r *partyRepo) ListUpcoming(ctx context.Context, now time.Time, f models.PartyFilter) ([]*models.Party, error) {
	defer r.s.lock(ctx)()

	var result []*models.Party
	for _, p := range r.s.data.parties {
		if p.EndDateTime.After(now) && matches(&p, f) {
			result = append(result, r.view(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDateTime.Before(result[j].StartDateTime)
	})
	return result, nil
}

func matches(p *models.Party, f models.PartyFilter) bool {
	switch {
	case f.Bourough != "" && p.Bourough != f.Bourough:
		return false
	case f.CrowdControl != "" && p.CrowdControl != f.CrowdControl:
		return false
	case f.CrowdCaution != nil && p.CrowdCaution != *f.CrowdCaution:
		return false
	case f.MaxPrice != nil && p.Price > *f.MaxPrice:
		return false
	case f.MinVenueSize > 0 && p.VenueSize < f.MinVenueSize:
		return false
	case f.MaxVenueSize > 0 && p.VenueSize > f.MaxVenueSize:
		return false
	}
	return true
}

func (r *partyRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Party, error) {
	defer r.s.lock(ctx)()

	var result []*models.Party
	for _, p := range r.s.data.parties {
		if p.CreatedBy == ownerID {
			result = append(result, r.view(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDateTime.After(result[j].StartDateTime)
	})
	return result, nil
}

func (r *partyRepo) Ratings(ctx context.Context, partyID string) ([]models.Rating, error) {
	defer r.s.lock(ctx)()

	var result []models.Rating
	for _, rt := range r.s.data.ratings[partyID] {
		result = append(result, rt)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].RaterID < result[j].RaterID
		}
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

func (r *partyRepo) UpsertRating(ctx context.Context, rt *models.Rating) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.parties[rt.PartyID]; !ok {
		return fmt.Errorf("db error: rating references unknown party %q", rt.PartyID)
	}
	if _, ok := r.s.data.users[rt.RaterID]; !ok {
		return fmt.Errorf("db error: rating references unknown user %q", rt.RaterID)
	}

	byRater := r.s.data.ratings[rt.PartyID]
	if byRater == nil {
		byRater = map[string]models.Rating{}
		r.s.data.ratings[rt.PartyID] = byRater
	}
	byRater[rt.RaterID] = *rt
	return nil
}
