package models

import "time"

var (
	Bouroughs     = []string{"Queens", "Bronx", "Brooklyn", "Manhattan", "Long Island"}
	CrowdControls = []string{"Moshpit", "Packed", "Spaced", "Kick back", "Mixer"}
	PartyTypes    = []string{"Public", "Private"}
)

const (
	MinVenueSize = 100
	MaxVenueSize = 10000
)

// Party is an event. ShortID and CreatedBy are set once at creation.
// HotOrNot is the stored score, nil while the party has no ratings.
// RatingCount is derived on read. Version increases on every write and
// guards conditional updates.
type Party struct {
	ID            string
	ShortID       string
	CreatedBy     string
	Title         string
	Bourough      string
	Location      string
	Vibe          string
	VenueSize     int
	CrowdControl  string
	CrowdCaution  bool
	Price         float64
	About         string
	Type          string
	StartDateTime time.Time
	EndDateTime   time.Time
	HotOrNot      *float64
	RatingCount   int
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ended reports whether the event window closed before now.
func (p *Party) Ended(now time.Time) bool {
	return p.EndDateTime.Before(now)
}

// PartyFilter narrows a listing of upcoming parties. Zero values mean
// "no constraint".
type PartyFilter struct {
	Bourough     string
	CrowdControl string
	CrowdCaution *bool
	MaxPrice     *float64
	MinVenueSize int
	MaxVenueSize int
}
