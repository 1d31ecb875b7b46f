package inmemory

import (
	"context"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	defer r.s.lock(ctx)()

	for _, u := range r.s.data.users {
		if u.Username == user.Username {
			return nil, common.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, common.ErrEmailTaken
		}
	}

	now := r.s.clock.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	user.PasswordResetToken = ""
	r.s.data.users[user.ID] = *user
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer r.s.lock(ctx)()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.Email == email })
}

func (r *userRepo) find(ctx context.Context, match func(*models.User) bool) (*models.User, error) {
	defer r.s.lock(ctx)()

	for _, u := range r.s.data.users {
		if match(&u) {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) SetVerificationToken(ctx context.Context, id, token string) error {
	return r.update(ctx, id, func(u *models.User) bool {
		u.VerificationToken = token
		return true
	})
}

func (r *userRepo) SetPasswordResetToken(ctx context.Context, id, token string) error {
	return r.update(ctx, id, func(u *models.User) bool {
		u.PasswordResetToken = token
		return true
	})
}

func (r *userRepo) ConsumeVerificationToken(ctx context.Context, id, token string) error {
	return r.update(ctx, id, func(u *models.User) bool {
		if u.VerificationToken == "" || u.VerificationToken != token {
			return false
		}
		u.Verified = true
		u.VerificationToken = ""
		return true
	})
}

func (r *userRepo) ConsumePasswordResetToken(ctx context.Context, id, token, passwordHash string) error {
	return r.update(ctx, id, func(u *models.User) bool {
		if u.PasswordResetToken == "" || u.PasswordResetToken != token {
			return false
		}
		u.PasswordHash = passwordHash
		u.PasswordResetToken = ""
		return true
	})
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, func(u *models.User) bool {
		u.PasswordHash = passwordHash
		u.PasswordResetToken = ""
		return true
	})
}

func (r *userRepo) MarkVerified(ctx context.Context, id string) error {
	return r.update(ctx, id, func(u *models.User) bool {
		u.Verified = true
		u.VerificationToken = ""
		return true
	})
}

// update applies fn to a copy of user id and stores it when fn reports a
// match. No user or no match is common.ErrorNotFound, like a zero-row UPDATE.
func (r *userRepo) update(ctx context.Context, id string, fn func(*models.User) bool) error {
	defer r.s.lock(ctx)()

	u, ok := r.s.data.users[id]
	if !ok || !fn(&u) {
		return common.ErrorNotFound
	}
	u.UpdatedAt = r.s.clock.Now()
	r.s.data.users[id] = u
	return nil
}
