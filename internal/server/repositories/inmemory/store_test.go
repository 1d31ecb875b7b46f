package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/dmitrijs2005/rooftop/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, *timex.ManualClock) {
	t.Helper()
	clock := timex.NewManualClock(t0)
	return NewStore(clock), clock
}

func seedUser(t *testing.T, s *Store, id, username, email string) {
	t.Helper()
	_, err := s.Users(nil).Create(context.Background(), &models.User{ID: id, Username: username, Email: email, VerificationToken: "vt-" + id})
	require.NoError(t, err)
}

func seedParty(t *testing.T, s *Store, id, shortID, owner string) *models.Party {
	t.Helper()
	p := &models.Party{
		ID: id, ShortID: shortID, CreatedBy: owner, Title: "Roof", Bourough: "Queens", VenueSize: 150,
		CrowdControl: "Packed", Type: "Public", Price: 10,
		StartDateTime: t0.Add(time.Hour), EndDateTime: t0.Add(4 * time.Hour),
	}
	require.NoError(t, s.Parties(nil).Create(context.Background(), p))
	return p
}

func TestUsers_UniquenessReportedPerField(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")

	_, err := s.Users(nil).Create(ctx, &models.User{ID: "u-2", Username: "alice1", Email: "b@x.com"})
	assert.ErrorIs(t, err, common.ErrUsernameTaken)

	_, err = s.Users(nil).Create(ctx, &models.User{ID: "u-2", Username: "bobby1", Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrEmailTaken)

	got, err := s.Users(nil).GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, t0, got.CreatedAt)

	_, err = s.Users(nil).GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUsers_ConsumeIsCompareAndClear(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")
	repo := s.Users(nil)

	require.ErrorIs(t, repo.ConsumeVerificationToken(ctx, "u-1", "stale"), common.ErrorNotFound)
	require.NoError(t, repo.ConsumeVerificationToken(ctx, "u-1", "vt-u-1"))
	require.ErrorIs(t, repo.ConsumeVerificationToken(ctx, "u-1", "vt-u-1"), common.ErrorNotFound)

	u, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.Empty(t, u.VerificationToken)

	require.NoError(t, repo.SetPasswordResetToken(ctx, "u-1", "rt"))
	require.NoError(t, repo.ConsumePasswordResetToken(ctx, "u-1", "rt", "hash"))
	require.ErrorIs(t, repo.ConsumePasswordResetToken(ctx, "u-1", "rt", "other"), common.ErrorNotFound)

	u, _ = repo.GetByID(ctx, "u-1")
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Empty(t, u.PasswordResetToken)
}

func TestUsers_ReturnedRecordsAreDetached(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")

	u, _ := s.Users(nil).GetByID(ctx, "u-1")
	u.Verified = true

	again, _ := s.Users(nil).GetByID(ctx, "u-1")
	assert.False(t, again.Verified)
}

func TestSessions_Lifecycle(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")
	repo := s.Sessions(nil)

	require.Error(t, repo.Create(ctx, &models.Session{UserID: "ghost", Token: "x", LastUse: t0}))

	require.NoError(t, repo.Create(ctx, &models.Session{UserID: "u-1", Token: "old", LastUse: t0.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Session{UserID: "u-1", Token: "new", LastUse: t0}))
	require.Error(t, repo.Create(ctx, &models.Session{UserID: "u-1", Token: "new", LastUse: t0}))

	n, err := repo.DeleteStale(ctx, "u-1", t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Find(ctx, "old")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Touch(ctx, "new", t0.Add(time.Minute)))
	got, err := repo.Find(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), got.LastUse)

	require.NoError(t, repo.Delete(ctx, "u-1", "new"))
	require.NoError(t, repo.Delete(ctx, "u-1", "new"))
	assert.ErrorIs(t, repo.Touch(ctx, "new", t0), common.ErrorNotFound)
}

func TestParties_ShortIDUniqueAndVersioning(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")
	p := seedParty(t, s, "p-1", "AbCdEfGh", "u-1")
	repo := s.Parties(nil)

	assert.Equal(t, int64(1), p.Version)

	dup := *p
	dup.ID = "p-2"
	assert.ErrorIs(t, repo.Create(ctx, &dup), common.ErrShortIDTaken)

	ok, err := repo.ShortIDExists(ctx, "AbCdEfGh")
	require.NoError(t, err)
	assert.True(t, ok)

	p.Title = "Rooftop"
	require.NoError(t, repo.Update(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	stale := *p
	stale.Version = 1
	assert.ErrorIs(t, repo.Update(ctx, &stale), common.ErrVersionConflict)

	score := 4.0
	_, err = repo.UpdateScore(ctx, "p-1", &score, 1)
	assert.ErrorIs(t, err, common.ErrVersionConflict)
	v, err := repo.UpdateScore(ctx, "p-1", &score, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	got, err := repo.GetByShortID(ctx, "AbCdEfGh")
	require.NoError(t, err)
	assert.Equal(t, "Rooftop", got.Title)
	require.NotNil(t, got.HotOrNot)
	assert.Equal(t, 4.0, *got.HotOrNot)
}

func TestParties_RatingsUpsertAndCascade(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")
	seedUser(t, s, "u-2", "bobby1", "b@x.com")
	seedParty(t, s, "p-1", "AbCdEfGh", "u-1")
	repo := s.Parties(nil)

	require.NoError(t, repo.UpsertRating(ctx, &models.Rating{PartyID: "p-1", RaterID: "u-2", Rating: 2, UpdatedAt: clock.Now()}))
	require.NoError(t, repo.UpsertRating(ctx, &models.Rating{PartyID: "p-1", RaterID: "u-2", Rating: 5, UpdatedAt: clock.Now()}))
	require.Error(t, repo.UpsertRating(ctx, &models.Rating{PartyID: "p-1", RaterID: "ghost", Rating: 5}))

	rs, err := repo.Ratings(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 5, rs[0].Rating)

	p, _ := repo.GetByID(ctx, "p-1")
	assert.Equal(t, 1, p.RatingCount)

	assert.ErrorIs(t, repo.Delete(ctx, "p-1", "u-2"), common.ErrorNotFound)
	require.NoError(t, repo.Delete(ctx, "p-1", "u-1"))

	rs, _ = repo.Ratings(ctx, "p-1")
	assert.Empty(t, rs)
}

func TestParties_ListUpcomingFiltersAndOrders(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")
	repo := s.Parties(nil)

	late := seedParty(t, s, "p-late", "AAAAAAAA", "u-1")
	late.StartDateTime, late.EndDateTime = t0.Add(10*time.Hour), t0.Add(12*time.Hour)
	require.NoError(t, repo.Update(ctx, late))

	seedParty(t, s, "p-soon", "BBBBBBBB", "u-1")

	over := seedParty(t, s, "p-over", "CCCCCCCC", "u-1")
	over.StartDateTime, over.EndDateTime = t0.Add(-5*time.Hour), t0.Add(-time.Hour)
	require.NoError(t, repo.Update(ctx, over))

	got, err := repo.ListUpcoming(ctx, t0, models.PartyFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-soon", got[0].ID)
	assert.Equal(t, "p-late", got[1].ID)

	maxPrice := 5.0
	got, err = repo.ListUpcoming(ctx, t0, models.PartyFilter{MaxPrice: &maxPrice})
	require.NoError(t, err)
	assert.Empty(t, got)

	mine, err := repo.ListByOwner(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	assert.Equal(t, "p-late", mine[0].ID)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, _ dbx.DBTX) error {
		if err := s.Users(nil).MarkVerified(ctx, "u-1"); err != nil {
			return err
		}
		if err := s.Sessions(nil).Create(ctx, &models.Session{UserID: "u-1", Token: "t", LastUse: t0}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, _ := s.Users(nil).GetByID(ctx, "u-1")
	assert.False(t, u.Verified)
	_, err = s.Sessions(nil).Find(ctx, "t")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(ctx context.Context, _ dbx.DBTX) error {
			_ = s.Users(nil).MarkVerified(ctx, "u-1")
			panic("kaboom")
		})
	})

	u, err := s.Users(nil).GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, u.Verified)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")

	err := s.WithTx(ctx, func(ctx context.Context, _ dbx.DBTX) error {
		return s.WithTx(ctx, func(ctx context.Context, _ dbx.DBTX) error {
			return s.Users(nil).MarkVerified(ctx, "u-1")
		})
	})
	require.NoError(t, err)

	u, _ := s.Users(nil).GetByID(ctx, "u-1")
	assert.True(t, u.Verified)
}

func TestWithTx_SerialisesReadModifyWrite(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice1", "a@x.com")
	seedParty(t, s, "p-1", "AbCdEfGh", "u-1")
	repo := s.Parties(nil)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(ctx, func(ctx context.Context, _ dbx.DBTX) error {
				p, err := repo.GetByID(ctx, "p-1")
				if err != nil {
					return err
				}
				score := float64(p.Version)
				_, err = repo.UpdateScore(ctx, p.ID, &score, p.Version)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := repo.GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1+workers), p.Version)
}
