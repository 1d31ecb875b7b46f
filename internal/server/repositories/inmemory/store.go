// Package inmemory keeps users, sessions, parties and ratings in process
// memory. It mirrors the PostgreSQL repositories error for error and is used
// when no database DSN is configured and by service tests.
package inmemory

import (
	"context"
	"database/sql"
	"maps"
	"sync"

	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/parties"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/users"
	"github.com/dmitrijs2005/rooftop/internal/timex"
)

type tables struct {
	users    map[string]models.User
	sessions map[string]models.Session
	parties  map[string]models.Party
	ratings  map[string]map[string]models.Rating
}

func newTables() tables {
	return tables{
		users:    map[string]models.User{},
		sessions: map[string]models.Session{},
		parties:  map[string]models.Party{},
		ratings:  map[string]map[string]models.Rating{},
	}
}

func (t tables) clone() tables {
	c := tables{
		users:    maps.Clone(t.users),
		sessions: maps.Clone(t.sessions),
		parties:  maps.Clone(t.parties),
		ratings:  make(map[string]map[string]models.Rating, len(t.ratings)),
	}
	for id, byRater := range t.ratings {
		c.ratings[id] = maps.Clone(byRater)
	}
	return c
}

// Store is the shared state behind every repository the Manager vends.
//
// A single mutex guards all tables. WithTx holds it for the whole unit of
// work, so transactions are serialisable, and rolls the tables back to a
// snapshot when the work fails.
type Store struct {
	mu    sync.Mutex
	clock timex.Clock
	data  tables
}

// txKey marks a context whose goroutine already holds Store.mu.
type txKey struct{}

var (
	_ repomanager.RepositoryManager = (*Store)(nil)
	_ dbx.Transactor                = (*Store)(nil)
)

func NewStore(clock timex.Clock) *Store {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &Store{clock: clock, data: newTables()}
}

// lock acquires the store unless ctx belongs to a running transaction on it.
func (s *Store) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx runs fn with exclusive access to the store. The tx passed to fn is
// nil: repositories vended by the Store ignore their DBTX. Nested calls join
// the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return fn(ctx, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s), nil)
}

func (s *Store) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (s *Store) Users(dbx.DBTX) users.Repository {
	return &userRepo{s: s}
}

func (s *Store) Sessions(dbx.DBTX) sessions.Repository {
	return &sessionRepo{s: s}
}

func (s *Store) Parties(dbx.DBTX) parties.Repository {
	return &partyRepo{s: s}
}
