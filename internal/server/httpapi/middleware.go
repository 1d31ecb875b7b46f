package httpapi

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/labstack/echo/v4"
)

// HeaderAuth carries the session token in both directions.
const HeaderAuth = "x-auth"

const (
	ctxUser  = "user"
	ctxToken = "token"
)

func accessLog(l logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			l.Info(req.Context(), "request",
				"method", req.Method,
				"uri", req.RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start).String(),
			)
			return nil
		}
	}
}

// ipRateLimit allows max requests per second per client address. A
// non-positive max disables limiting.
func ipRateLimit(max float64) echo.MiddlewareFunc {
	if max <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	lmt := tollbooth.NewLimiter(max, nil)
	lmt.SetIPLookups([]string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if httpErr := tollbooth.LimitByRequest(lmt, c.Response(), c.Request()); httpErr != nil {
				return common.ErrTooManyRequests
			}
			return next(c)
		}
	}
}

// authenticate resolves the x-auth header to a live session.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.Request().Header.Get(HeaderAuth)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "No token, authorization denied")
		}

		user, err := s.svc.Sessions.Authenticate(c.Request().Context(), token)
		if err != nil {
			return err
		}

		c.Set(ctxUser, user)
		c.Set(ctxToken, token)
		return next(c)
	}
}

func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(ctxUser).(*models.User)
	return u
}

func currentToken(c echo.Context) string {
	t, _ := c.Get(ctxToken).(string)
	return t
}
