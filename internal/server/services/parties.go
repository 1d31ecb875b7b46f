package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/dmitrijs2005/rooftop/internal/server/rating"
	"github.com/dmitrijs2005/rooftop/internal/server/shortcode"
	"github.com/dmitrijs2005/rooftop/internal/server/validation"
	"github.com/dmitrijs2005/rooftop/internal/timex"
	"github.com/google/uuid"
)

// DefaultWriteAttempts bounds how often Rate and UpdateParty retry after
// losing a race.
const DefaultWriteAttempts = 5

// PartyInput holds the editable fields of a party. Version is only read by
// UpdateParty; zero means "whatever is current".
type PartyInput struct {
	Title         string    `json:"title" validate:"required"`
	Bourough      string    `json:"bourough" validate:"bourough"`
	Location      string    `json:"location" validate:"required"`
	Vibe          string    `json:"vibe" validate:"required,url"`
	VenueSize     int       `json:"venueSize" validate:"min=100,max=10000"`
	CrowdControl  string    `json:"crowdControl" validate:"crowdcontrol"`
	CrowdCaution  bool      `json:"crowdCaution"`
	Price         float64   `json:"price" validate:"gte=0"`
	About         string    `json:"about" validate:"required"`
	Type          string    `json:"type" validate:"partytype"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	Version       int64     `json:"version,omitempty"`
}

// PartyService owns parties, their short codes and their ratings.
//
// Scores returned by every read are presented for the current time: an
// ended party with a single rating shows 0. The stored score is untouched.
type PartyService struct {
	store        Storage
	codes        *shortcode.Generator
	clock        timex.Clock
	validate     *validation.Validator
	writeAttempts int
	log          logging.Logger
}

func NewPartyService(store Storage, codes *shortcode.Generator, clock timex.Clock, log logging.Logger) *PartyService {
	return &PartyService{
		store:        store,
		codes:        codes,
		clock:        clock,
		validate:     validation.New(),
		writeAttempts: DefaultWriteAttempts,
		log:          log.With("module", "parties"),
	}
}

func (s *PartyService) check(in *PartyInput) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	switch {
	case in.StartDateTime.IsZero():
		return common.NewValidationError("startDateTime", "is required")
	case in.EndDateTime.IsZero():
		return common.NewValidationError("endDateTime", "is required")
	case !in.StartDateTime.After(s.clock.Now()):
		return common.NewValidationError("startDateTime", "must not be in the past")
	case !in.StartDateTime.Before(in.EndDateTime):
		return common.NewValidationError("startDateTime", "must be before endDateTime")
	}
	return nil
}

func (in *PartyInput) apply(p *models.Party) {
	p.Title = in.Title
	p.Bourough = in.Bourough
	p.Location = in.Location
	p.Vibe = in.Vibe
	p.VenueSize = in.VenueSize
	p.CrowdControl = in.CrowdControl
	p.CrowdCaution = in.CrowdCaution
	p.Price = in.Price
	p.About = in.About
	p.Type = in.Type
	p.StartDateTime = in.StartDateTime
	p.EndDateTime = in.EndDateTime
}

// CreateParty stores a new party owned by ownerID under a fresh short code.
//
// The existence check in the generator can race with another creation, so
// a uniqueness violation on insert draws a new code, within the same bound.
func (s *PartyService) CreateParty(ctx context.Context, ownerID string, in PartyInput) (*models.Party, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}

	repo := s.store.Repos.Parties(s.store.DB)

	for attempt := 0; attempt < s.codes.MaxAttempts(); attempt++ {
		code, err := s.codes.Generate(ctx, repo)
		if err != nil {
			return nil, fault(ctx, s.log, "generate short code", err)
		}

		p := &models.Party{ID: uuid.NewString(), ShortID: code, CreatedBy: ownerID}
		in.apply(p)

		err = repo.Create(ctx, p)
		if errors.Is(err, common.ErrShortIDTaken) {
			s.log.Warn(ctx, "short code taken on insert, retrying", "short_id", code)
			continue
		}
		if err != nil {
			return nil, fault(ctx, s.log, "create party", err)
		}

		s.log.Info(ctx, "party created", "party_id", p.ID, "short_id", p.ShortID)
		return p, nil
	}

	return nil, fault(ctx, s.log, "create party", shortcode.ErrExhausted)
}

// UpdateParty rewrites the editable fields of a party owned by ownerID.
// The short code and the owner never change.
//
// A non-zero in.Version makes the write conditional on that version and a
// stale one yields common.ErrVersionConflict. Without a version the write
// is retried on fresh data when a concurrent change, such as a rating,
// bumped the version in between.
func (s *PartyService) UpdateParty(ctx context.Context, ownerID, partyID string, in PartyInput) (*models.Party, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}

	repo := s.store.Repos.Parties(s.store.DB)

	for attempt := 0; attempt < s.writeAttempts; attempt++ {
		p, err := repo.GetByID(ctx, partyID)
		if err != nil {
			return nil, s.lookupErr(ctx, err)
		}
		if p.CreatedBy != ownerID {
			return nil, common.ErrorForbidden
		}

		in.apply(p)
		if in.Version != 0 {
			p.Version = in.Version
		}

		err = repo.Update(ctx, p)
		switch {
		case err == nil:
			rating.PresentParty(p, s.clock.Now())
			return p, nil
		case errors.Is(err, common.ErrVersionConflict):
			if in.Version != 0 {
				return nil, err
			}
		default:
			return nil, fault(ctx, s.log, "update party", err)
		}
	}

	s.log.Warn(ctx, "update kept conflicting, giving up", "party_id", partyID, "attempts", s.writeAttempts)
	return nil, common.ErrVersionConflict
}

// DeleteParty removes a party owned by ownerID along with its ratings.
func (s *PartyService) DeleteParty(ctx context.Context, ownerID, partyID string) error {
	repo := s.store.Repos.Parties(s.store.DB)

	p, err := repo.GetByID(ctx, partyID)
	if err != nil {
		return s.lookupErr(ctx, err)
	}
	if p.CreatedBy != ownerID {
		return common.ErrorForbidden
	}

	if err := repo.Delete(ctx, partyID, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fault(ctx, s.log, "delete party", err)
	}
	s.log.Info(ctx, "party deleted", "party_id", partyID)
	return nil
}

// Rate records raterID's rating of a party, replacing any earlier rating by
// the same rater, and recomputes the stored score.
//
// The score write is conditional on the version read at the start of the
// transaction; a concurrent rating makes it fail and the whole step is
// retried on fresh data.
func (s *PartyService) Rate(ctx context.Context, partyID, raterID string, value int, review string) (*models.Party, error) {
	if !rating.InRange(value) {
		return nil, common.NewValidationError("rating", "must be an int between 1 and 5")
	}

	for attempt := 0; attempt < s.writeAttempts; attempt++ {
		p, err := s.rateOnce(ctx, partyID, raterID, value, review)
		switch {
		case err == nil:
			rating.PresentParty(p, s.clock.Now())
			return p, nil
		case errors.Is(err, common.ErrVersionConflict):
			continue
		case errors.Is(err, common.ErrorNotFound):
			return nil, err
		default:
			return nil, fault(ctx, s.log, "rate party", err)
		}
	}

	s.log.Warn(ctx, "rating kept conflicting, giving up", "party_id", partyID, "attempts", s.writeAttempts)
	return nil, common.ErrVersionConflict
}

func (s *PartyService) rateOnce(ctx context.Context, partyID, raterID string, value int, review string) (*models.Party, error) {
	var result *models.Party

	err := s.store.Tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.store.Repos.Parties(tx)

		p, err := repo.GetByID(ctx, partyID)
		if err != nil {
			return err
		}
		existing, err := repo.Ratings(ctx, partyID)
		if err != nil {
			return err
		}

		r := models.Rating{PartyID: partyID, RaterID: raterID, Rating: value, Review: review, UpdatedAt: s.clock.Now()}
		updated := rating.Apply(existing, r)

		if err := repo.UpsertRating(ctx, &r); err != nil {
			return err
		}

		score := rating.Score(updated)
		version, err := repo.UpdateScore(ctx, partyID, score, p.Version)
		if err != nil {
			return err
		}

		p.HotOrNot, p.Version, p.RatingCount = score, version, len(updated)
		result = p
		return nil
	})
	return result, err
}

// Ratings lists the ratings of a party with their reviews. A missing party
// yields common.ErrorNotFound.
func (s *PartyService) Ratings(ctx context.Context, partyID string) ([]models.Rating, error) {
	repo := s.store.Repos.Parties(s.store.DB)

	if _, err := repo.GetByID(ctx, partyID); err != nil {
		return nil, s.lookupErr(ctx, err)
	}

	rs, err := repo.Ratings(ctx, partyID)
	if err != nil {
		return nil, fault(ctx, s.log, "list ratings", err)
	}
	return rs, nil
}

func (s *PartyService) GetByID(ctx context.Context, partyID string) (*models.Party, error) {
	p, err := s.store.Repos.Parties(s.store.DB).GetByID(ctx, partyID)
	if err != nil {
		return nil, s.lookupErr(ctx, err)
	}
	rating.PresentParty(p, s.clock.Now())
	return p, nil
}

func (s *PartyService) GetByShortID(ctx context.Context, code string) (*models.Party, error) {
	if !shortcode.Valid(code) {
		return nil, common.NewValidationError("shortId", "must be 8 letters or digits 1-9")
	}

	p, err := s.store.Repos.Parties(s.store.DB).GetByShortID(ctx, code)
	if err != nil {
		return nil, s.lookupErr(ctx, err)
	}
	rating.PresentParty(p, s.clock.Now())
	return p, nil
}

// ListUpcoming lists parties that have not ended, soonest first.
func (s *PartyService) ListUpcoming(ctx context.Context, f models.PartyFilter) ([]*models.Party, error) {
	now := s.clock.Now()

	parties, err := s.store.Repos.Parties(s.store.DB).ListUpcoming(ctx, now, f)
	if err != nil {
		return nil, fault(ctx, s.log, "list upcoming", err)
	}
	for _, p := range parties {
		rating.PresentParty(p, now)
	}
	return parties, nil
}

// ListMine lists every party owned by ownerID.
func (s *PartyService) ListMine(ctx context.Context, ownerID string) ([]*models.Party, error) {
	now := s.clock.Now()

	parties, err := s.store.Repos.Parties(s.store.DB).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fault(ctx, s.log, "list owned", err)
	}
	for _, p := range parties {
		rating.PresentParty(p, now)
	}
	return parties, nil
}

// GetUserDerivedScore averages the presented scores of userID's ended
// parties, ignoring unrated ones and ones presented as 0.
func (s *PartyService) GetUserDerivedScore(ctx context.Context, userID string) (float64, error) {
	parties, err := s.store.Repos.Parties(s.store.DB).ListByOwner(ctx, userID)
	if err != nil {
		return 0, fault(ctx, s.log, "derived score", err)
	}
	return rating.OwnerScore(parties, s.clock.Now()), nil
}

// lookupErr passes NotFound through and hides any other failure.
func (s *PartyService) lookupErr(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fault(ctx, s.log, "load party", err)
}
