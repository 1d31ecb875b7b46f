package inmemory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Create(ctx context.Context, sess *models.Session) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.users[sess.UserID]; !ok {
		return fmt.Errorf("db error: session references unknown user %q", sess.UserID)
	}
	if _, ok := r.s.data.sessions[sess.Token]; ok {
		return fmt.Errorf("db error: duplicate session token")
	}
	r.s.data.sessions[sess.Token] = *sess
	return nil
}

func (r *sessionRepo) Find(ctx context.Context, token string) (*models.Session, error) {
	defer r.s.lock(ctx)()

	sess, ok := r.s.data.sessions[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &sess, nil
}

func (r *sessionRepo) Touch(ctx context.Context, token string, lastUse time.Time) error {
	defer r.s.lock(ctx)()

	sess, ok := r.s.data.sessions[token]
	if !ok {
		return common.ErrorNotFound
	}
	sess.LastUse = lastUse
	r.s.data.sessions[token] = sess
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, userID, token string) error {
	defer r.s.lock(ctx)()

	if sess, ok := r.s.data.sessions[token]; ok && sess.UserID == userID {
		delete(r.s.data.sessions, token)
	}
	return nil
}

func (r *sessionRepo) DeleteStale(ctx context.Context, userID string, before time.Time) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for token, sess := range r.s.data.sessions {
		if sess.UserID == userID && sess.LastUse.Before(before) {
			delete(r.s.data.sessions, token)
			n++
		}
	}
	return n, nil
}
