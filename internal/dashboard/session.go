// Package dashboard is a terminal front end for the booking API.  It keeps
// the login state in an explicit Session and renders a manager or customer
// view from freshly fetched events.
package dashboard

import (
	"github.com/iliyamo/event-booking/internal/client"
	"github.com/iliyamo/event-booking/internal/model"
)

// Session is the dashboard's login state.  The zero value is logged out.
type Session struct {
	Token string
	User  model.User
}

// NewSession starts a session from a login response.
func NewSession(res client.LoginResponse) *Session {
	return &Session{Token: res.AccessToken, User: res.User}
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool { return s != nil && s.Token != "" }

// Clear logs the session out.
func (s *Session) Clear() {
	s.Token = ""
	s.User = model.User{}
}
