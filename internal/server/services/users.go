package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/config"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/dmitrijs2005/rooftop/internal/server/notify"
	"github.com/dmitrijs2005/rooftop/internal/server/validation"
	"github.com/google/uuid"
)

// SignUpInput is a new local account.
type SignUpInput struct {
	Username string `json:"username" validate:"required,alphanum,min=5"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordInput struct {
	Password string `json:"newPassword" validate:"required,min=6,max=72"`
}

// Profile is a user together with the score derived from their parties.
type Profile struct {
	User     *models.User
	HotOrNot float64
}

// ScoreSource supplies a user's derived popularity score.
type ScoreSource interface {
	GetUserDerivedScore(ctx context.Context, userID string) (float64, error)
}

// UserService manages accounts and their single-use tokens: email
// verification and password reset.
//
// Each user holds at most one live token of each kind. Issuing a new one
// overwrites the old, and consuming one clears it in the same write.
type UserService struct {
	store    Storage
	issuer   *auth.Issuer
	hasher   auth.PasswordHasher
	notifier notify.Notifier
	limiter  Limiter
	scores   ScoreSource
	validate *validation.Validator
	log      logging.Logger

	verificationTTL  time.Duration
	passwordResetTTL time.Duration
	frontendURL      string
}

// NewUserService wires a UserService. A nil limiter disables throttling.
func NewUserService(
	store Storage,
	issuer *auth.Issuer,
	hasher auth.PasswordHasher,
	notifier notify.Notifier,
	limiter Limiter,
	scores ScoreSource,
	cfg *config.Config,
	log logging.Logger,
) *UserService {
	if limiter == nil {
		limiter = allowAll{}
	}
	return &UserService{
		store:            store,
		issuer:           issuer,
		hasher:           hasher,
		notifier:         notifier,
		limiter:          limiter,
		scores:           scores,
		validate:         validation.New(),
		log:              log.With("module", "users"),
		verificationTTL:  cfg.VerificationTokenValidityDuration,
		passwordResetTTL: cfg.PasswordResetTokenValidityDuration,
		frontendURL:      strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

// SignUp creates an unverified account holding one live verification token
// and emails the verification link.
//
// The account is kept when the email is refused (common.ErrNotificationRejected);
// the user can ask for the link again.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fault(ctx, s.log, "hash password", err)
	}

	id := uuid.NewString()
	token, err := s.issuer.Issue(auth.KindVerification, id, s.verificationTTL)
	if err != nil {
		return nil, fault(ctx, s.log, "issue verification token", err)
	}

	user, err := s.store.Repos.Users(s.store.DB).Create(ctx, &models.User{
		ID:                id,
		Username:          in.Username,
		Email:             in.Email,
		PasswordHash:      hash,
		VerificationToken: token,
	})
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) || errors.Is(err, common.ErrEmailTaken) {
			return nil, err
		}
		return nil, fault(ctx, s.log, "create user", err)
	}
	s.log.Info(ctx, "user signed up", "user_id", user.ID)

	if err := s.sendVerification(ctx, user.Email, token); err != nil {
		return nil, err
	}
	return user, nil
}

// Verify consumes a verification token and marks its owner verified.
//
// An expired or forged token yields common.ErrInvalidToken and changes
// nothing. A token that decodes but is no longer the live one (reissued or
// already used) yields common.ErrorNotFound.
func (s *UserService) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.NewValidationError("verificationToken", "is required")
	}

	userID, err := s.issuer.DecodeKind(token, auth.KindVerification)
	if err != nil {
		return nil, err
	}

	repo := s.store.Repos.Users(s.store.DB)
	if err := repo.ConsumeVerificationToken(ctx, userID, token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fault(ctx, s.log, "consume verification token", err)
	}

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fault(ctx, s.log, "load verified user", err)
	}
	s.log.Info(ctx, "user verified", "user_id", user.ID)
	return user, nil
}

// ResendVerification reissues the verification token of the account with
// email, which invalidates the previous one, and emails the new link.
func (s *UserService) ResendVerification(ctx context.Context, email string) (*models.User, error) {
	if err := s.validate.Struct(emailInput{Email: email}); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(ctx, "verify:"+strings.ToLower(email)) {
		return nil, common.ErrTooManyRequests
	}

	repo := s.store.Repos.Users(s.store.DB)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fault(ctx, s.log, "resend lookup", err)
	}
	if user.Verified {
		return nil, common.ErrAlreadyVerified
	}

	token, err := s.issuer.Issue(auth.KindVerification, user.ID, s.verificationTTL)
	if err != nil {
		return nil, fault(ctx, s.log, "issue verification token", err)
	}
	if err := repo.SetVerificationToken(ctx, user.ID, token); err != nil {
		return nil, fault(ctx, s.log, "store verification token", err)
	}

	if err := s.sendVerification(ctx, user.Email, token); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset issues a password reset token for the account with
// email and emails the reset link.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.validate.Struct(emailInput{Email: email}); err != nil {
		return err
	}
	if !s.limiter.Allow(ctx, "reset:"+strings.ToLower(email)) {
		return common.ErrTooManyRequests
	}

	repo := s.store.Repos.Users(s.store.DB)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fault(ctx, s.log, "reset lookup", err)
	}

	token, err := s.issuer.Issue(auth.KindPasswordReset, user.ID, s.passwordResetTTL)
	if err != nil {
		return fault(ctx, s.log, "issue reset token", err)
	}
	if err := repo.SetPasswordResetToken(ctx, user.ID, token); err != nil {
		return fault(ctx, s.log, "store reset token", err)
	}

	return s.send(ctx, user.Email, notify.TemplateForgotPassword, map[string]string{
		"passwordResetUrl": s.link("/password-reset", "passwordResetToken", token),
	})
}

// VerifyResetToken reports whether token is a live password reset token.
// It never consumes the token.
func (s *UserService) VerifyResetToken(ctx context.Context, token string) error {
	if token == "" {
		return common.NewValidationError("passwordResetToken", "is required")
	}

	userID, err := s.issuer.DecodeKind(token, auth.KindPasswordReset)
	if err != nil {
		return err
	}

	user, err := s.store.Repos.Users(s.store.DB).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fault(ctx, s.log, "reset token lookup", err)
	}
	if user.PasswordResetToken == "" || user.PasswordResetToken != token {
		return common.ErrorNotFound
	}
	return nil
}

// ResetPassword consumes a password reset token and sets newPassword.
// Failures leave both the token and the old password in place.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return common.NewValidationError("passwordResetToken", "is required")
	}
	if err := s.validate.Struct(passwordInput{Password: newPassword}); err != nil {
		return err
	}

	userID, err := s.issuer.DecodeKind(token, auth.KindPasswordReset)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fault(ctx, s.log, "hash password", err)
	}

	if err := s.store.Repos.Users(s.store.DB).ConsumePasswordResetToken(ctx, userID, token, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fault(ctx, s.log, "consume reset token", err)
	}
	s.log.Info(ctx, "password reset", "user_id", userID)
	return nil
}

// ChangePassword replaces the password of userID after checking the old
// one. A wrong old password yields common.ErrWrongPassword.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return common.NewValidationError("oldPassword", "is required")
	}
	if err := s.validate.Struct(passwordInput{Password: newPassword}); err != nil {
		return err
	}

	repo := s.store.Repos.Users(s.store.DB)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fault(ctx, s.log, "change password lookup", err)
	}
	if !user.HasPassword() {
		return common.ErrWrongPassword
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fault(ctx, s.log, "verify password", err)
	}
	if !ok {
		return common.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fault(ctx, s.log, "hash password", err)
	}
	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fault(ctx, s.log, "update password", err)
	}
	return nil
}

// GetProfile returns userID with their derived score.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.store.Repos.Users(s.store.DB).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fault(ctx, s.log, "profile lookup", err)
	}

	p := &Profile{User: user}
	if s.scores != nil {
		if p.HotOrNot, err = s.scores.GetUserDerivedScore(ctx, userID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *UserService) sendVerification(ctx context.Context, email, token string) error {
	return s.send(ctx, email, notify.TemplateSignupVerification, map[string]string{
		"userEmail":       email,
		"verificationUrl": s.link("/verify", "verificationToken", token),
	})
}

func (s *UserService) send(ctx context.Context, to, templateID string, vars map[string]string) error {
	accepted, err := s.notifier.Send(ctx, to, templateID, vars)
	if err != nil {
		return fault(ctx, s.log, "send "+templateID, err)
	}
	if !accepted {
		s.log.Warn(ctx, "email not accepted", "template", templateID)
		return fmt.Errorf("%w: %s", common.ErrNotificationRejected, templateID)
	}
	return nil
}

func (s *UserService) link(path, param, token string) string {
	return s.frontendURL + path + "?" + param + "=" + url.QueryEscape(token)
}
