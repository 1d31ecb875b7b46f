// Package httpapi exposes the account, session and party services over
// HTTP/JSON with echo.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/config"
	"github.com/dmitrijs2005/rooftop/internal/server/services"
	"github.com/dmitrijs2005/rooftop/internal/server/validation"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

// Services bundles what the handlers call into.
type Services struct {
	Users    *services.UserService
	Auth     *services.Authenticator
	Sessions *services.SessionRegistry
	Parties  *services.PartyService
	Issuer   *auth.Issuer
}

type Server struct {
	address string
	echo    *echo.Echo
	svc     Services
	google  *googleLogin
	logger  logging.Logger
}

func NewServer(cfg *config.Config, svc Services, l logging.Logger) *Server {
	s := &Server{
		address: cfg.EndpointAddrHTTP,
		echo:    echo.New(),
		svc:     svc,
		logger:  l.With("module", "http_server"),
	}
	if cfg.GoogleEnabled() {
		s.google = newGoogleLogin(cfg, svc.Issuer)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(accessLog(s.logger))

	s.routes(cfg.LoginRateLimit)
	return s
}

func (s *Server) routes(loginRate float64) {
	limited := ipRateLimit(loginRate)
	authed := s.authenticate

	a := s.echo.Group("/auth")
	a.POST("/", s.signUp, limited)
	a.POST("/login", s.login, limited)
	a.POST("/logout", s.logout, authed)
	a.POST("/verifySignup", s.verifySignup)
	a.POST("/sendSignupVerificationEmail", s.sendSignupVerificationEmail)
	a.POST("/requestPasswordResetEmail", s.requestPasswordResetEmail)
	a.POST("/verifyPasswordResetToken", s.verifyPasswordResetToken)
	a.POST("/resetPassword", s.resetPassword)
	a.GET("/google", s.googleRedirect)
	a.GET("/google/callback", s.googleCallback)

	u := s.echo.Group("/user", authed)
	u.GET("/", s.getProfile)
	u.POST("/changePassword", s.changePassword)

	p := s.echo.Group("/party")
	p.GET("/my/", s.myParties, authed)
	p.POST("/id/", s.getParty)
	p.POST("/all/", s.listParties)
	p.POST("/rate", s.rateParty, authed)
	p.POST("/ratings/", s.partyRatings)
	p.POST("/", s.createParty, authed)
	p.PUT("/:id", s.updateParty, authed)
	p.DELETE("/", s.deleteParty, authed)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.echo, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
