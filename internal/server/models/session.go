package models

import "time"

// Session is one live auth token owned by a user.
type Session struct {
	UserID  string
	Token   string
	LastUse time.Time
}
