package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/parties"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code runs against a pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Parties(db dbx.DBTX) parties.Repository
}
