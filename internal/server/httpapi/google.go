package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/config"
	"github.com/dmitrijs2005/rooftop/internal/server/services"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleProvider    = "google"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// googleLogin runs the authorization code flow against Google. The state
// parameter is a short-lived signed token, so no server-side state is kept.
type googleLogin struct {
	oauth       *oauth2.Config
	userInfoURL string
	issuer      *auth.Issuer
	stateTTL    time.Duration
}

func newGoogleLogin(cfg *config.Config, issuer *auth.Issuer) *googleLogin {
	return &googleLogin{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
		issuer:      issuer,
		stateTTL:    cfg.OAuthStateValidityDuration,
	}
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
}

func (s *Server) googleRedirect(c echo.Context) error {
	if s.google == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Google login is not configured")
	}

	state, err := s.google.issuer.Issue(auth.KindOAuthState, googleProvider, s.google.stateTTL)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, s.google.oauth.AuthCodeURL(state))
}

func (s *Server) googleCallback(c echo.Context) error {
	if s.google == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Google login is not configured")
	}
	ctx := c.Request().Context()

	if _, err := s.google.issuer.DecodeKind(c.QueryParam("state"), auth.KindOAuthState); err != nil {
		return fmt.Errorf("%w: oauth state: %w", common.ErrorUnauthorized, err)
	}
	code := c.QueryParam("code")
	if code == "" {
		return common.NewValidationError("code", "is required")
	}

	tok, err := s.google.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn(ctx, "google code exchange failed", "error", err)
		return common.ErrorUnauthorized
	}

	info, err := s.google.userInfo(c.Request(), tok)
	if err != nil {
		return err
	}
	if !info.EmailVerified {
		return fmt.Errorf("%w: google email is not verified", common.ErrorUnauthorized)
	}

	res, err := s.svc.Auth.OnExternalAuthentication(ctx, services.ExternalIdentity{
		Provider:  googleProvider,
		Subject:   info.Sub,
		Email:     info.Email,
		GivenName: info.GivenName,
	})
	if err != nil {
		return err
	}

	c.Response().Header().Set(HeaderAuth, res.Token)
	return c.JSON(http.StatusOK, toUser(res.User))
}

func (g *googleLogin) userInfo(r *http.Request, tok *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.oauth.Client(r.Context(), tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo: unexpected status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, errors.New("google userinfo: missing subject or email")
	}
	return &info, nil
}
