// Package users provides the PostgreSQL-backed user repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

const userColumns = `id, username, email, COALESCE(password_hash, ''), verified, COALESCE(provider, ''),
		 COALESCE(verification_token, ''), COALESCE(password_reset_token, ''), created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user with its pre-assigned ID. Unique violations become
// common.ErrUsernameTaken or common.ErrEmailTaken.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, username, email, password_hash, verified, provider, verification_token)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''))
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Verified, user.Provider, user.VerificationToken,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			switch constraint {
			case "users_username_key":
				return nil, common.ErrUsernameTaken
			case "users_email_key":
				return nil, common.ErrEmailTaken
			}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

// column is always one of the literals above, never caller input.
func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE ` + column + ` = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Verified, &user.Provider,
		&user.VerificationToken, &user.PasswordResetToken, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// SetVerificationToken overwrites the live verification token of user id.
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	return r.exec(ctx,
		`UPDATE users SET verification_token = $2, updated_at = now()
		 WHERE id = $1
		 `, id, token)
}

// SetPasswordResetToken overwrites the live password reset token of user id.
func (r *PostgresRepository) SetPasswordResetToken(ctx context.Context, id, token string) error {
	return r.exec(ctx,
		`UPDATE users SET password_reset_token = $2, updated_at = now()
		 WHERE id = $1
		 `, id, token)
}

// ConsumeVerificationToken marks the user verified and clears the token,
// provided token is still the live one. Otherwise common.ErrorNotFound.
func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, id, token string) error {
	return r.exec(ctx,
		`UPDATE users SET verified = TRUE, verification_token = NULL, updated_at = now()
		 WHERE id = $1 AND verification_token = $2
		 `, id, token)
}

// ConsumePasswordResetToken stores the new hash and clears the token,
// provided token is still the live one. Otherwise common.ErrorNotFound.
func (r *PostgresRepository) ConsumePasswordResetToken(ctx context.Context, id, token, passwordHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $3, password_reset_token = NULL, updated_at = now()
		 WHERE id = $1 AND password_reset_token = $2
		 `, id, token, passwordHash)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $2, password_reset_token = NULL, updated_at = now()
		 WHERE id = $1
		 `, id, passwordHash)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET verified = TRUE, verification_token = NULL, updated_at = now()
		 WHERE id = $1
		 `, id)
}

// exec runs a single-row update; zero affected rows is common.ErrorNotFound.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
