package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/rooftop/internal/server/services"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifySignupRequest struct {
	VerificationToken string `json:"verificationToken"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetTokenRequest struct {
	PasswordResetToken string `json:"passwordResetToken"`
	NewPassword        string `json:"newPassword"`
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func (s *Server) signUp(c echo.Context) error {
	var req services.SignUpInput
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := s.svc.Users.SignUp(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, struct {
		Msg  string       `json:"msg"`
		User userResponse `json:"user"`
	}{"User created, verification email sent", toUser(user)})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.svc.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.Response().Header().Set(HeaderAuth, res.Token)
	return c.JSON(http.StatusOK, toUser(res.User))
}

func (s *Server) logout(c echo.Context) error {
	user := currentUser(c)
	if err := s.svc.Auth.Logout(c.Request().Context(), user.ID, currentToken(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "Logged out"})
}

func (s *Server) verifySignup(c echo.Context) error {
	var req verifySignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := s.svc.Users.Verify(c.Request().Context(), req.VerificationToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, struct {
		Msg  string       `json:"msg"`
		User userResponse `json:"user"`
	}{"Email verified", toUser(user)})
}

func (s *Server) sendSignupVerificationEmail(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if _, err := s.svc.Users.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "Verification email sent"})
}

func (s *Server) requestPasswordResetEmail(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.svc.Users.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "Password reset email sent"})
}

func (s *Server) verifyPasswordResetToken(c echo.Context) error {
	var req resetTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.svc.Users.VerifyResetToken(c.Request().Context(), req.PasswordResetToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "Token is valid"})
}

func (s *Server) resetPassword(c echo.Context) error {
	var req resetTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.svc.Users.ResetPassword(c.Request().Context(), req.PasswordResetToken, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "Password updated"})
}
