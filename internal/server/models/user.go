// Package models defines the server-side records persisted by the
// repositories.
package models

import "time"

// User is an account. Empty PasswordHash means the account was created by
// federated login and has no local password. Empty VerificationToken or
// PasswordResetToken means no live token of that kind.
type User struct {
	ID                 string
	Username           string
	Email              string
	PasswordHash       string
	Verified           bool
	Provider           string
	VerificationToken  string
	PasswordResetToken string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasPassword reports whether a local password is set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
