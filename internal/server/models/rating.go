package models

import "time"

// Rating is one rater's score for a party, keyed by (PartyID, RaterID).
type Rating struct {
	PartyID   string
	RaterID   string
	Rating    int
	Review    string
	UpdatedAt time.Time
}
