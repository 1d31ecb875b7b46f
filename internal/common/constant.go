// Package common contains shared constants and sentinel errors used across
// Rooftop components.
package common

// AuthTokenHeaderName is the HTTP header carrying the session token on
// requests and on login responses.
const AuthTokenHeaderName = "x-auth"
