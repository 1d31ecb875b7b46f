package parties

import (
	"context"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

// Repository persists parties and their ratings.
//
// Update and UpdateScore are conditional on the version the caller read and
// return common.ErrVersionConflict when it has moved on.
type Repository interface {
	Create(ctx context.Context, p *models.Party) error
	ShortIDExists(ctx context.Context, code string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Party, error)
	GetByShortID(ctx context.Context, code string) (*models.Party, error)
	Update(ctx context.Context, p *models.Party) error
	UpdateScore(ctx context.Context, id string, score *float64, version int64) (int64, error)
	Delete(ctx context.Context, id, ownerID string) error

	ListUpcoming(ctx context.Context, now time.Time, f models.PartyFilter) ([]*models.Party, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Party, error)

	Ratings(ctx context.Context, partyID string) ([]models.Rating, error)
	UpsertRating(ctx context.Context, r *models.Rating) error
}
