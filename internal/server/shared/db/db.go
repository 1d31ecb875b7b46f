// Package db opens the store the server runs on: PostgreSQL when a DSN is
// configured, the in-memory store otherwise.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/inmemory"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/rooftop/internal/server/services"
	"github.com/dmitrijs2005/rooftop/internal/timex"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// Handle is an opened store. Conn is nil for the in-memory store.
type Handle struct {
	Storage services.Storage
	Conn    *sql.DB
}

// Open connects to dsn and applies pending migrations. An empty dsn yields
// a fresh in-memory store.
func Open(ctx context.Context, dsn string, clock timex.Clock) (*Handle, error) {
	if dsn == "" {
		store := inmemory.NewStore(clock)
		return &Handle{Storage: services.Storage{Tx: store, Repos: store}}, nil
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	h, err := fromConn(ctx, conn, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return h, nil
}

func fromConn(ctx context.Context, conn *sql.DB, repos repomanager.RepositoryManager) (*Handle, error) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := repos.RunMigrations(ctx, conn); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Handle{
		Storage: services.Storage{DB: conn, Tx: dbx.NewSQLTransactor(conn, nil), Repos: repos},
		Conn:    conn,
	}, nil
}

// Close releases the connection pool, if any.
func (h *Handle) Close() error {
	if h.Conn == nil {
		return nil
	}
	return h.Conn.Close()
}
