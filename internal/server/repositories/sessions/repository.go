package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

// Repository is the per-user collection of live session tokens.
type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	Find(ctx context.Context, token string) (*models.Session, error)
	Touch(ctx context.Context, token string, lastUse time.Time) error
	// Delete is idempotent: removing an absent token is not an error.
	Delete(ctx context.Context, userID, token string) error
	DeleteStale(ctx context.Context, userID string, before time.Time) (int64, error)
}
