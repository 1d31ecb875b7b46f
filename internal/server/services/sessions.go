package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/dmitrijs2005/rooftop/internal/timex"
)

// SessionRegistry tracks the live session tokens of each user.
//
// A session token authenticates exactly while it decodes as an auth token
// and is still present in the registry. Removal and sweeping are permanent.
type SessionRegistry struct {
	store  Storage
	issuer *auth.Issuer
	clock  timex.Clock
	window time.Duration
	log    logging.Logger
}

// NewSessionRegistry builds a registry whose SweepStale drops sessions
// unused for longer than window.
func NewSessionRegistry(store Storage, issuer *auth.Issuer, clock timex.Clock, window time.Duration, log logging.Logger) *SessionRegistry {
	return &SessionRegistry{
		store:  store,
		issuer: issuer,
		clock:  clock,
		window: window,
		log:    log.With("module", "sessions"),
	}
}

// CreateSession issues a non-expiring auth token for userID and records it.
func (r *SessionRegistry) CreateSession(ctx context.Context, userID string) (string, error) {
	token, err := r.issuer.Issue(auth.KindAuth, userID, auth.NoExpiry)
	if err != nil {
		return "", fault(ctx, r.log, "issue session token", err)
	}

	s := &models.Session{UserID: userID, Token: token, LastUse: r.clock.Now()}
	if err := r.store.Repos.Sessions(r.store.DB).Create(ctx, s); err != nil {
		return "", fault(ctx, r.log, "create session", err)
	}
	return token, nil
}

// RemoveSession revokes token. Removing an absent token is not an error.
func (r *SessionRegistry) RemoveSession(ctx context.Context, userID, token string) error {
	if err := r.store.Repos.Sessions(r.store.DB).Delete(ctx, userID, token); err != nil {
		return fault(ctx, r.log, "remove session", err)
	}
	return nil
}

// SweepStale revokes every session of userID whose last use is older than
// the inactivity window and returns how many were revoked.
func (r *SessionRegistry) SweepStale(ctx context.Context, userID string) (int64, error) {
	cutoff := r.clock.Now().Add(-r.window)

	n, err := r.store.Repos.Sessions(r.store.DB).DeleteStale(ctx, userID, cutoff)
	if err != nil {
		return 0, fault(ctx, r.log, "sweep sessions", err)
	}
	if n > 0 {
		r.log.Info(ctx, "stale sessions swept", "user_id", userID, "count", n)
	}
	return n, nil
}

// Authenticate resolves a presented session token to its user and records
// the use. Any token that is not live yields common.ErrorUnauthorized.
func (r *SessionRegistry) Authenticate(ctx context.Context, token string) (*models.User, error) {
	subject, err := r.issuer.DecodeKind(token, auth.KindAuth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	repo := r.store.Repos.Sessions(r.store.DB)

	s, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fault(ctx, r.log, "find session", err)
	}
	if s.UserID != subject {
		r.log.Warn(ctx, "session owner mismatch", "session_user_id", s.UserID, "token_subject", subject)
		return nil, common.ErrorUnauthorized
	}

	if err := repo.Touch(ctx, token, r.clock.Now()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fault(ctx, r.log, "touch session", err)
	}

	user, err := r.store.Repos.Users(r.store.DB).GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fault(ctx, r.log, "load session user", err)
	}
	return user, nil
}
