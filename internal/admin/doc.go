// Package admin implements partyctl, the operator command line for the
// Rooftop store.
//
// Flags are shared with the server configuration and go before the command:
//
//	partyctl -d postgres://... migrate
//	partyctl -d postgres://... set-password alice1
//	partyctl -d postgres://... verify-user alice1
//	partyctl -d postgres://... sweep-sessions alice1
package admin
