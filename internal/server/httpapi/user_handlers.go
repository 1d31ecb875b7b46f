package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (s *Server) getProfile(c echo.Context) error {
	profile, err := s.svc.Users.GetProfile(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{userResponse: toUser(profile.User), HotOrNot: profile.HotOrNot})
}

func (s *Server) changePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := s.svc.Users.ChangePassword(c.Request().Context(), currentUser(c).ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "Password updated"})
}
