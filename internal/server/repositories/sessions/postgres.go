// Package sessions provides the PostgreSQL-backed session token repository.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

// PostgresRepository stores sessions over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	query := `INSERT INTO sessions (user_id, token, last_use) VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, s.UserID, s.Token, s.LastUse); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT user_id, token, last_use FROM sessions WHERE token = $1`

	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.UserID, &s.Token, &s.LastUse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Touch records a use of token. A token removed meanwhile yields
// common.ErrorNotFound.
func (r *PostgresRepository) Touch(ctx context.Context, token string, lastUse time.Time) error {
	query := `UPDATE sessions SET last_use = $2 WHERE token = $1`

	res, err := r.db.ExecContext(ctx, query, token, lastUse)
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

func (r *PostgresRepository) Delete(ctx context.Context, userID, token string) error {
	query := `DELETE FROM sessions WHERE user_id = $1 AND token = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteStale removes the user's sessions last used before the cutoff and
// returns how many were removed.
func (r *PostgresRepository) DeleteStale(ctx context.Context, userID string, before time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE user_id = $1 AND last_use < $2`

	res, err := r.db.ExecContext(ctx, query, userID, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
