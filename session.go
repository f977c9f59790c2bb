package authcore

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// DefaultSessionCookie is the name of the correlation cookie set on login.
// Distinct from the scs session cookie, which keeps its own default name.
const DefaultSessionCookie = "loggedInIdentityId"

// Sessions is the optional cookie-based session marker layered on top of a
// verified identity.  The cookie value is the identity's id: an opaque
// correlation handle, not a credential.  There is no server-side revocation
// list; closing a session clears the client's cookie and the server-side scs
// state for that request.
type Sessions struct {
	Manager    *scs.SessionManager
	CookieName string

	// SessionVar is the scs key the identity id is stored under.
	SessionVar string
}

// NewSessions builds a session layer with a freshly configured scs manager.
func NewSessions() *Sessions {
	manager := scs.New()
	manager.Lifetime = 24 * time.Hour
	return &Sessions{Manager: manager}
}

// EnsureDefaults fills in unset fields.
func (s *Sessions) EnsureDefaults() *Sessions {
	if s.Manager == nil {
		s.Manager = scs.New()
		s.Manager.Lifetime = 24 * time.Hour
	}
	if s.CookieName == "" {
		s.CookieName = DefaultSessionCookie
	}
	if s.SessionVar == "" {
		s.SessionVar = "loggedInIdentityId"
	}
	return s
}

// Open records the identity in the scs session and sets the correlation
// cookie.  Called on login, after the caller's bearer token has already been
// verified.
func (s *Sessions) Open(w http.ResponseWriter, r *http.Request, identity *Identity) {
	s.EnsureDefaults()
	s.Manager.Put(r.Context(), s.SessionVar, identity.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    identity.ID,
		Path:     "/",
		HttpOnly: true,
	})
}

// Close invalidates the session: the scs state is destroyed and the cookie is
// expired.  Idempotent; closing an absent session is not an error.
func (s *Sessions) Close(w http.ResponseWriter, r *http.Request) {
	s.EnsureDefaults()
	if err := s.Manager.Destroy(r.Context()); err != nil {
		slog.Warn("error destroying session", "err", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now(),
		HttpOnly: true,
	})
}

// IdentityID returns the identity id recorded in the current session, or ""
// if the session is not open.
func (s *Sessions) IdentityID(r *http.Request) string {
	s.EnsureDefaults()
	return s.Manager.GetString(r.Context(), s.SessionVar)
}
