package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/rooftop/internal/server/shortcode"
	"github.com/dmitrijs2005/rooftop/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectPartyQ  = `(?s)^SELECT .* FROM parties p WHERE p\.id = \$1`
	selectRatesQ  = `(?s)^SELECT party_id, rater_id, rating, review, updated_at FROM ratings`
	upsertRatingQ = `(?s)INSERT INTO ratings .*ON CONFLICT \(party_id, rater_id\)`
	updateScoreQ  = `(?s)^UPDATE parties SET hot_or_not = \$3, version = version \+ 1`
)

var sqlPartyColumns = []string{
	"id", "short_id", "created_by", "title", "bourough", "location", "vibe",
	"venue_size", "crowd_control", "crowd_caution", "price", "about", "type",
	"start_date_time", "end_date_time", "hot_or_not", "version", "created_at", "updated_at", "rating_count",
}

func sqlPartyRow(version int64, hotOrNot any, count int) *sqlmock.Rows {
	return sqlmock.NewRows(sqlPartyColumns).AddRow(
		"p-1", "a1B2c3D4", "u-1", "Roof", "Brooklyn", "Bushwick", "https://vibe.example",
		200, "Mixer", false, 15.0, "about", "Public", t0.Add(time.Hour), t0.Add(4*time.Hour),
		hotOrNot, version, t0, t0, count)
}

func sqlPartyService(t *testing.T) (*PartyService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	storage := Storage{
		DB:    db,
		Tx:    dbx.NewSQLTransactor(db, nil),
		Repos: repomanager.NewPostgresRepositoryManager(),
	}
	return NewPartyService(storage, shortcode.NewGenerator(0), timex.NewManualClock(t0), logging.Nop{}), mock
}

func TestRate_SQLRetriesAfterVersionConflict(t *testing.T) {
	svc, mock := sqlPartyService(t)

	// First attempt: someone else bumped the version between read and write.
	mock.ExpectBegin()
	mock.ExpectQuery(selectPartyQ).WithArgs("p-1").WillReturnRows(sqlPartyRow(3, nil, 0))
	mock.ExpectQuery(selectRatesQ).WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"party_id", "rater_id", "rating", "review", "updated_at"}))
	mock.ExpectExec(upsertRatingQ).WithArgs("p-1", "u-2", 4, "", t0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(updateScoreQ).WithArgs("p-1", int64(3), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectRollback()

	// Second attempt sees the competing rating and wins.
	mock.ExpectBegin()
	mock.ExpectQuery(selectPartyQ).WithArgs("p-1").WillReturnRows(sqlPartyRow(4, 2.0, 1))
	mock.ExpectQuery(selectRatesQ).WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"party_id", "rater_id", "rating", "review", "updated_at"}).
			AddRow("p-1", "u-3", 2, "meh", t0))
	mock.ExpectExec(upsertRatingQ).WithArgs("p-1", "u-2", 4, "", t0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(updateScoreQ).WithArgs("p-1", int64(4), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))
	mock.ExpectCommit()

	p, err := svc.Rate(context.Background(), "p-1", "u-2", 4, "")
	require.NoError(t, err)
	require.NotNil(t, p.HotOrNot)
	assert.InDelta(t, 3.0, *p.HotOrNot, 1e-9)
	assert.Equal(t, 2, p.RatingCount)
	assert.Equal(t, int64(5), p.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRate_SQLGivesUpAfterAttempts(t *testing.T) {
	svc, mock := sqlPartyService(t)
	svc.writeAttempts = 2

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(selectPartyQ).WillReturnRows(sqlPartyRow(3, nil, 0))
		mock.ExpectQuery(selectRatesQ).
			WillReturnRows(sqlmock.NewRows([]string{"party_id", "rater_id", "rating", "review", "updated_at"}))
		mock.ExpectExec(upsertRatingQ).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(updateScoreQ).WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectRollback()
	}

	_, err := svc.Rate(context.Background(), "p-1", "u-2", 4, "")
	require.ErrorIs(t, err, common.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRate_SQLFaultIsInternal(t *testing.T) {
	svc, mock := sqlPartyService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectPartyQ).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := svc.Rate(context.Background(), "p-1", "u-2", 4, "")
	require.ErrorIs(t, err, common.ErrorInternal)
	require.NoError(t, mock.ExpectationsWereMet())
}
