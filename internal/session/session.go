// Package session holds the client-side credential state that every
// outgoing request reads its bearer token from.
package session

import (
	"errors"
)

// Role is the coarse role the backend reports on login. It is only used to
// decide what to show; the backend makes every authorization decision.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ErrIncompleteSession is returned when a session is saved without both tokens.
var ErrIncompleteSession = errors.New("session requires both an access token and a refresh token")

// User is the lightweight descriptor derived from the login response.
type User struct {
	Username string `json:"username" yaml:"username"`
	Role     Role   `json:"role" yaml:"role"`
}

// Session is the credential pair plus the user it belongs to.
type Session struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	User         User   `json:"user" yaml:"user"`
}

// Validate enforces that both tokens are present.
func (s Session) Validate() error {
	if s.AccessToken == "" || s.RefreshToken == "" {
		return ErrIncompleteSession
	}
	return nil
}

// IsAdmin reports whether the stored user carries the ADMIN role.
func (s Session) IsAdmin() bool {
	return s.User.Role == RoleAdmin
}

// Store persists at most one Session.
type Store interface {
	// Save replaces the current session. Either every field is written or
	// none is.
	Save(s Session) error

	// Load returns the current session. The bool is false when nothing is
	// stored.
	Load() (Session, bool, error)

	// Clear removes both tokens and the user descriptor.
	Clear() error
}
