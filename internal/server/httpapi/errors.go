package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Msg    string            `json:"msg"`
	Errors map[string]string `json:"errors,omitempty"`
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrWrongPassword):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUsernameTaken),
		errors.Is(err, common.ErrEmailTaken),
		errors.Is(err, common.ErrShortIDTaken),
		errors.Is(err, common.ErrAlreadyVerified),
		errors.Is(err, common.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrNotVerified),
		errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// handleError renders every error returned by a handler or middleware.
// Anything not recognised becomes an opaque 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		body   errorResponse
		he     *echo.HTTPError
		ve     *common.ValidationError
	)
	switch {
	case errors.As(err, &he):
		status = he.Code
		body.Msg = http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			body.Msg = m
		}
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body = errorResponse{Msg: "validation failed", Errors: ve.Fields}
	default:
		status = statusFor(err)
		body.Msg = err.Error()
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", "error", err, "path", c.Path())
		body = errorResponse{Msg: "Server error"}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "writing error response failed", "error", err)
	}
}
