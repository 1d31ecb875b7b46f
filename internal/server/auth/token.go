// Package auth mints and decodes signed tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates what a token may be used for.
type Kind string

const (
	KindAuth          Kind = "auth"
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password"
	KindOAuthState    Kind = "oauth_state"
)

const (
	// DefaultTTL applies when Issue is called with a zero ttl.
	DefaultTTL = 365 * 24 * time.Hour
	// NoExpiry omits the exp claim entirely.
	NoExpiry time.Duration = -1
)

// Claims is the JWT payload: the registered claims (sub, iat, exp, jti)
// plus the token kind.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// Decoded is what a valid token proves.
type Decoded struct {
	Subject string
	Kind    Kind
}

// Issuer signs tokens with HS256. Decoding never touches storage.
type Issuer struct {
	secret []byte
	clock  timex.Clock
}

func NewIssuer(secret []byte, clock timex.Clock) *Issuer {
	return &Issuer{secret: secret, clock: clock}
}

// Issue mints a token binding subject and kind. A zero ttl means DefaultTTL,
// NoExpiry means the token never expires on its own. Any other negative ttl
// yields a token that is already expired.
func (i *Issuer) Issue(kind Kind, subject string, ttl time.Duration) (string, error) {
	now := i.clock.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
		Kind: kind,
	}

	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl != NoExpiry {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Decode verifies the signature and expiry of tokenString.
//
// Every failure wraps common.ErrInvalidToken; an expired token additionally
// wraps common.ErrTokenExpired.
func (i *Issuer) Decode(tokenString string) (*Decoded, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.Kind == "" {
		return nil, common.ErrInvalidToken
	}

	return &Decoded{Subject: claims.Subject, Kind: claims.Kind}, nil
}

// DecodeKind is Decode that also requires the token to be of kind want.
func (i *Issuer) DecodeKind(tokenString string, want Kind) (string, error) {
	d, err := i.Decode(tokenString)
	if err != nil {
		return "", err
	}
	if d.Kind != want {
		return "", fmt.Errorf("%w: unexpected kind %q", common.ErrInvalidToken, d.Kind)
	}
	return d.Subject, nil
}
