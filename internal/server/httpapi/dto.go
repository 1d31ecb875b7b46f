package httpapi

import (
	"time"

	"github.com/dmitrijs2005/rooftop/internal/server/models"
)

type messageResponse struct {
	Msg string `json:"msg"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	Provider string `json:"provider,omitempty"`
}

func toUser(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Verified: u.Verified, Provider: u.Provider}
}

type profileResponse struct {
	userResponse
	HotOrNot float64 `json:"hotOrNot"`
}

type partyResponse struct {
	ID            string    `json:"id"`
	ShortID       string    `json:"shortId"`
	CreatedBy     string    `json:"createdBy"`
	Title         string    `json:"title"`
	Bourough      string    `json:"bourough"`
	Location      string    `json:"location"`
	Vibe          string    `json:"vibe"`
	VenueSize     int       `json:"venueSize"`
	CrowdControl  string    `json:"crowdControl"`
	CrowdCaution  bool      `json:"crowdCaution"`
	Price         float64   `json:"price"`
	About         string    `json:"about"`
	Type          string    `json:"type"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	HotOrNot      *float64  `json:"hotOrNot"`
	RatingCount   int       `json:"ratingCount"`
	Version       int64     `json:"version"`
}

func toParty(p *models.Party) partyResponse {
	return partyResponse{
		ID:            p.ID,
		ShortID:       p.ShortID,
		CreatedBy:     p.CreatedBy,
		Title:         p.Title,
		Bourough:      p.Bourough,
		Location:      p.Location,
		Vibe:          p.Vibe,
		VenueSize:     p.VenueSize,
		CrowdControl:  p.CrowdControl,
		CrowdCaution:  p.CrowdCaution,
		Price:         p.Price,
		About:         p.About,
		Type:          p.Type,
		StartDateTime: p.StartDateTime,
		EndDateTime:   p.EndDateTime,
		HotOrNot:      p.HotOrNot,
		RatingCount:   p.RatingCount,
		Version:       p.Version,
	}
}

func toParties(ps []*models.Party) []partyResponse {
	out := make([]partyResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toParty(p))
	}
	return out
}

type partyEnvelope struct {
	Msg   string        `json:"msg,omitempty"`
	Party partyResponse `json:"party"`
}

type partiesEnvelope struct {
	Parties []partyResponse `json:"parties"`
}

type ratingResponse struct {
	By        string    `json:"by"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toRatings(rs []models.Rating) []ratingResponse {
	out := make([]ratingResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, ratingResponse{By: r.RaterID, Rating: r.Rating, Review: r.Review, UpdatedAt: r.UpdatedAt})
	}
	return out
}

type ratingsEnvelope struct {
	Ratings []ratingResponse `json:"ratings"`
}
