package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/dmitrijs2005/rooftop/internal/server/models"
	"github.com/dmitrijs2005/rooftop/internal/server/services"
	"github.com/labstack/echo/v4"
)

type partyLookupRequest struct {
	PartyID string `json:"partyId" validate:"omitempty,uuid"`
	ShortID string `json:"shortId"`
}

type partyIDRequest struct {
	PartyID string `json:"partyId" validate:"required,uuid"`
}

type rateRequest struct {
	PartyID string `json:"partyId" validate:"required,uuid"`
	Rating  int    `json:"rating"`
	Review  string `json:"review"`
}

type partyFilter struct {
	Bourough     string   `json:"bourough" validate:"omitempty,bourough"`
	CrowdControl string   `json:"crowdControl" validate:"omitempty,crowdcontrol"`
	CrowdCaution *bool    `json:"crowdCaution"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	MinVenueSize int      `json:"minVenueSize" validate:"omitempty,min=100,max=10000"`
	MaxVenueSize int      `json:"maxVenueSize" validate:"omitempty,min=100,max=10000"`
}

type listRequest struct {
	Filter partyFilter `json:"filter"`
}

func (s *Server) myParties(c echo.Context) error {
	parties, err := s.svc.Parties.ListMine(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partiesEnvelope{Parties: toParties(parties)})
}

func (s *Server) getParty(c echo.Context) error {
	var req partyLookupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	var (
		p   *models.Party
		err error
	)
	switch {
	case req.ShortID != "":
		p, err = s.svc.Parties.GetByShortID(ctx, req.ShortID)
	case req.PartyID != "":
		p, err = s.svc.Parties.GetByID(ctx, req.PartyID)
	default:
		return common.NewValidationError("partyId", "partyId or shortId is required")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partyEnvelope{Party: toParty(p)})
}

func (s *Server) listParties(c echo.Context) error {
	var req listRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	f := req.Filter
	parties, err := s.svc.Parties.ListUpcoming(c.Request().Context(), models.PartyFilter{
		Bourough:     f.Bourough,
		CrowdControl: f.CrowdControl,
		CrowdCaution: f.CrowdCaution,
		MaxPrice:     f.Price,
		MinVenueSize: f.MinVenueSize,
		MaxVenueSize: f.MaxVenueSize,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partiesEnvelope{Parties: toParties(parties)})
}

func (s *Server) rateParty(c echo.Context) error {
	var req rateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	p, err := s.svc.Parties.Rate(c.Request().Context(), req.PartyID, currentUser(c).ID, req.Rating, req.Review)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partyEnvelope{Msg: "Party rated", Party: toParty(p)})
}

func (s *Server) partyRatings(c echo.Context) error {
	var req partyIDRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	rs, err := s.svc.Parties.Ratings(c.Request().Context(), req.PartyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ratingsEnvelope{Ratings: toRatings(rs)})
}

func (s *Server) createParty(c echo.Context) error {
	var req services.PartyInput
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := s.svc.Parties.CreateParty(c.Request().Context(), currentUser(c).ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, partyEnvelope{Msg: "Party created", Party: toParty(p)})
}

func (s *Server) updateParty(c echo.Context) error {
	id := partyIDRequest{PartyID: c.Param("id")}
	if err := c.Validate(&id); err != nil {
		return err
	}

	var req services.PartyInput
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := s.svc.Parties.UpdateParty(c.Request().Context(), currentUser(c).ID, id.PartyID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partyEnvelope{Msg: "Party updated", Party: toParty(p)})
}

func (s *Server) deleteParty(c echo.Context) error {
	var req partyIDRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := s.svc.Parties.DeleteParty(c.Request().Context(), currentUser(c).ID, req.PartyID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "Party deleted"})
}
