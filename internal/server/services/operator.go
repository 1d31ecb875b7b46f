package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

// FindByUsername returns the account named username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.Repos.Users(s.store.DB).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fault(ctx, s.log, "lookup by username", err)
	}
	return user, nil
}

// SetPassword replaces the password of username without asking for the old
// one. Any outstanding reset token stops working.
func (s *UserService) SetPassword(ctx context.Context, username, newPassword string) (*models.User, error) {
	if err := s.validate.Struct(passwordInput{Password: newPassword}); err != nil {
		return nil, err
	}

	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fault(ctx, s.log, "hash password", err)
	}
	if err := s.store.Repos.Users(s.store.DB).UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, fault(ctx, s.log, "set password", err)
	}
	s.log.Info(ctx, "password set by operator", "user_id", user.ID)
	return user, nil
}

// ForceVerify marks username verified and drops its verification token.
// An already verified account yields common.ErrAlreadyVerified.
func (s *UserService) ForceVerify(ctx context.Context, username string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		return nil, common.ErrAlreadyVerified
	}

	if err := s.store.Repos.Users(s.store.DB).MarkVerified(ctx, user.ID); err != nil {
		return nil, fault(ctx, s.log, "mark verified", err)
	}
	user.Verified = true
	user.VerificationToken = ""
	s.log.Info(ctx, "user verified by operator", "user_id", user.ID)
	return user, nil
}
