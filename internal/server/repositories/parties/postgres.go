// Package parties provides the PostgreSQL-backed party and rating repository.
package parties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

const partyColumns = `p.id, p.short_id, p.created_by, p.title, p.bourough, p.location, p.vibe,
		 p.venue_size, p.crowd_control, p.crowd_caution, p.price, p.about, p.type,
		 p.start_date_time, p.end_date_time, p.hot_or_not, p.version, p.created_at, p.updated_at,
		 (SELECT COUNT(*) FROM ratings r WHERE r.party_id = p.id) AS rating_count`

// PostgresRepository stores parties over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParty(s scanner) (*models.Party, error) {
	var (
		p        models.Party
		hotOrNot sql.NullFloat64
	)
	err := s.Scan(
		&p.ID, &p.ShortID, &p.CreatedBy, &p.Title, &p.Bourough, &p.Location, &p.Vibe,
		&p.VenueSize, &p.CrowdControl, &p.CrowdCaution, &p.Price, &p.About, &p.Type,
		&p.StartDateTime, &p.EndDateTime, &hotOrNot, &p.Version, &p.CreatedAt, &p.UpdatedAt,
		&p.RatingCount,
	)
	if err != nil {
		return nil, err
	}
	if hotOrNot.Valid {
		p.HotOrNot = &hotOrNot.Float64
	}
	return &p, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// Create inserts p with its pre-assigned ID and short ID. A taken short ID
// yields common.ErrShortIDTaken.
func (r *PostgresRepository) Create(ctx context.Context, p *models.Party) error {
	query :=
		`INSERT INTO parties (id, short_id, created_by, title, bourough, location, vibe, venue_size,
		     crowd_control, crowd_caution, price, about, type, start_date_time, end_date_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING version, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.ShortID, p.CreatedBy, p.Title, p.Bourough, p.Location, p.Vibe, p.VenueSize,
		p.CrowdControl, p.CrowdCaution, p.Price, p.About, p.Type, p.StartDateTime, p.EndDateTime,
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok && constraint == "parties_short_id_key" {
			return common.ErrShortIDTaken
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ShortIDExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM parties WHERE short_id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Party, error) {
	return r.getOne(ctx, `SELECT `+partyColumns+` FROM parties p WHERE p.id = $1`, id)
}

func (r *PostgresRepository) GetByShortID(ctx context.Context, code string) (*models.Party, error) {
	return r.getOne(ctx, `SELECT `+partyColumns+` FROM parties p WHERE p.short_id = $1`, code)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.Party, error) {
	p, err := scanParty(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Update writes the editable fields of p if p.Version is still current and
// advances p.Version. ShortID, CreatedBy and the score are never written.
func (r *PostgresRepository) Update(ctx context.Context, p *models.Party) error {
	query :=
		`UPDATE parties SET title = $3, bourough = $4, location = $5, vibe = $6, venue_size = $7,
		     crowd_control = $8, crowd_caution = $9, price = $10, about = $11, type = $12,
		     start_date_time = $13, end_date_time = $14, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Version, p.Title, p.Bourough, p.Location, p.Vibe, p.VenueSize,
		p.CrowdControl, p.CrowdCaution, p.Price, p.About, p.Type, p.StartDateTime, p.EndDateTime,
	).Scan(&p.Version, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrVersionConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateScore stores score if version is still current and returns the new
// version.
func (r *PostgresRepository) UpdateScore(ctx context.Context, id string, score *float64, version int64) (int64, error) {
	query :=
		`UPDATE parties SET hot_or_not = $3, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2
		 RETURNING version
		 `

	var next int64
	err := r.db.QueryRowContext(ctx, query, id, version, nullFloat(score)).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrVersionConflict
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return next, nil
}

// Delete removes a party owned by ownerID; its ratings go with it.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM parties WHERE id = $1 AND created_by = $2`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
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

// ListUpcoming returns parties that have not ended at now, soonest first.
func (r *PostgresRepository) ListUpcoming(ctx context.Context, now time.Time, f models.PartyFilter) ([]*models.Party, error) {
	where := []string{"p.end_date_time > $1"}
	args := []any{now}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Bourough != "" {
		add("p.bourough = $%d", f.Bourough)
	}
	if f.CrowdControl != "" {
		add("p.crowd_control = $%d", f.CrowdControl)
	}
	if f.CrowdCaution != nil {
		add("p.crowd_caution = $%d", *f.CrowdCaution)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}
	if f.MinVenueSize > 0 {
		add("p.venue_size >= $%d", f.MinVenueSize)
	}
	if f.MaxVenueSize > 0 {
		add("p.venue_size <= $%d", f.MaxVenueSize)
	}

	query := `SELECT ` + partyColumns + ` FROM parties p
		 WHERE ` + strings.Join(where, " AND ") + `
		 ORDER BY p.start_date_time`

	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties p
		 WHERE p.created_by = $1
		 ORDER BY p.start_date_time DESC`

	return r.list(ctx, query, ownerID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Party, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select parties: %w", err)
	}
	defer rows.Close()

	var result []*models.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Ratings(ctx context.Context, partyID string) ([]models.Rating, error) {
	query := `SELECT party_id, rater_id, rating, review, updated_at FROM ratings
		 WHERE party_id = $1
		 ORDER BY updated_at`

	rows, err := r.db.QueryContext(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to select ratings: %w", err)
	}
	defer rows.Close()

	var result []models.Rating
	for rows.Next() {
		var item models.Rating
		if err := rows.Scan(&item.PartyID, &item.RaterID, &item.Rating, &item.Review, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return result, nil
}

// UpsertRating stores r, replacing the rater's previous rating if any.
func (r *PostgresRepository) UpsertRating(ctx context.Context, rt *models.Rating) error {
	query := `
		INSERT INTO ratings (party_id, rater_id, rating, review, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (party_id, rater_id)
		DO UPDATE SET
			rating = EXCLUDED.rating,
			review = EXCLUDED.review,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, rt.PartyID, rt.RaterID, rt.Rating, rt.Review, rt.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
