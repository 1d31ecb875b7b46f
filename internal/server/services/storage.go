// Package services contains the server-side business logic: accounts and
// their single-use tokens, sessions, login, and parties with their ratings.
//
// Every exported operation returns either a sentinel from internal/common
// (possibly wrapped) or common.ErrorInternal; store faults are logged here
// and never passed up verbatim.
package services

import (
	"context"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/dbx"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/repomanager"
)

// Storage is what services need from persistence: a handle for single
// statements, a Transactor for atomic units of work and the repository
// factory. DB may be nil for stores that ignore it.
type Storage struct {
	DB    dbx.DBTX
	Tx    dbx.Transactor
	Repos repomanager.RepositoryManager
}

// Limiter decides whether another request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type allowAll struct{}

func (allowAll) Allow(context.Context, string) bool { return true }

// fault logs a store or transport failure and hides it behind
// common.ErrorInternal.
func fault(ctx context.Context, log logging.Logger, op string, err error) error {
	log.Error(ctx, "operation failed", "op", op, "error", err)
	return common.ErrorInternal
}
