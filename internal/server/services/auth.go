package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/google/uuid"
)

// LoginResult is a user together with a freshly created session token.
type LoginResult struct {
	User  *models.User
	Token string
}

// ExternalIdentity is what a federated identity provider asserts about the
// person signing in.
type ExternalIdentity struct {
	Provider  string
	Subject   string
	Email     string
	GivenName string
}

// Authenticator turns credentials into sessions.
type Authenticator struct {
	store    Storage
	hasher   auth.PasswordHasher
	sessions *SessionRegistry
	log      logging.Logger
}

func NewAuthenticator(store Storage, hasher auth.PasswordHasher, sessions *SessionRegistry, log logging.Logger) *Authenticator {
	return &Authenticator{
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		log:      log.With("module", "authenticator"),
	}
}

// Login checks username and password and opens a session.
//
// Unknown users, users without a local password and wrong passwords all
// yield common.ErrorUnauthorized. A correct password on an unverified
// account yields common.ErrNotVerified. Stale sessions of the user are
// swept after a successful login.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" {
		return nil, common.NewValidationError("username", "is required")
	}
	if password == "" {
		return nil, common.NewValidationError("password", "is required")
	}

	user, err := a.store.Repos.Users(a.store.DB).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fault(ctx, a.log, "login lookup", err)
	}
	if !user.HasPassword() {
		return nil, common.ErrorUnauthorized
	}

	ok, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fault(ctx, a.log, "verify password", err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	if !user.Verified {
		return nil, common.ErrNotVerified
	}

	return a.openSession(ctx, user)
}

// Logout revokes token for userID.
func (a *Authenticator) Logout(ctx context.Context, userID, token string) error {
	return a.sessions.RemoveSession(ctx, userID, token)
}

// OnExternalAuthentication signs in the owner of id.Email, creating a
// verified account on first sight.
func (a *Authenticator) OnExternalAuthentication(ctx context.Context, id ExternalIdentity) (*LoginResult, error) {
	if id.Email == "" {
		return nil, common.NewValidationError("email", "is required")
	}

	repo := a.store.Repos.Users(a.store.DB)

	user, err := repo.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		return a.openSession(ctx, user)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fault(ctx, a.log, "external lookup", err)
	}

	user, err = repo.Create(ctx, &models.User{
		ID:       uuid.NewString(),
		Username: federatedUsername(id.GivenName, id.Subject),
		Email:    id.Email,
		Verified: true,
		Provider: id.Provider,
	})
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		// Lost a race with a concurrent first login for the same address.
		user, err = repo.GetByEmail(ctx, id.Email)
		if err != nil {
			return nil, fault(ctx, a.log, "external lookup", err)
		}
	case errors.Is(err, common.ErrUsernameTaken):
		return nil, err
	case err != nil:
		return nil, fault(ctx, a.log, "external signup", err)
	default:
		a.log.Info(ctx, "user created from external identity", "user_id", user.ID, "provider", id.Provider)
	}

	return a.openSession(ctx, user)
}

func (a *Authenticator) openSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	token, err := a.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if _, err := a.sessions.SweepStale(ctx, user.ID); err != nil {
		a.log.Warn(ctx, "session sweep after login failed", "user_id", user.ID)
	}

	return &LoginResult{User: user, Token: token}, nil
}

// federatedUsername joins the given name and the provider subject and keeps
// only ASCII letters and digits.
func federatedUsername(givenName, subject string) string {
	var b strings.Builder
	for _, r := range givenName + subject {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() < 5 {
		return "user" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	return b.String()
}
