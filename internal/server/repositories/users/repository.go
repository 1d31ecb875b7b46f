package users

import (
	"context"

	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

// Repository persists users and their single-use token slots.
//
// Consume* methods are compare-and-clear: they succeed only while the
// presented token is still the stored one and clear it in the same write.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	SetVerificationToken(ctx context.Context, id, token string) error
	SetPasswordResetToken(ctx context.Context, id, token string) error
	ConsumeVerificationToken(ctx context.Context, id, token string) error
	ConsumePasswordResetToken(ctx context.Context, id, token, passwordHash string) error

	// UpdatePassword also clears any live password reset token.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error
}
