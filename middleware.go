package authcore

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type identityContextKey struct{}

// Middleware resolves the bearer token on incoming requests to an Identity
// and makes it available to downstream handlers through the request context.
type Middleware struct {
	// HeaderName is the header carrying the bearer token.  Defaults to
	// "Authorization"; a "Bearer " prefix is stripped if present.
	HeaderName string

	// CookieName optionally names a cookie that may carry the token for
	// non-API calls.  Empty disables the cookie fallback.
	CookieName string

	// Tokens verifies token strings to subjects.
	Tokens *TokenIssuer

	// Store resolves subjects to identities.
	Store CredentialStore
}

// EnsureDefaults fills in unset fields.
func (m *Middleware) EnsureDefaults() *Middleware {
	if m.HeaderName == "" {
		m.HeaderName = "Authorization"
	}
	return m
}

// IdentityFromContext returns the identity placed in the context by the
// middleware, or nil if the request was not authenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}

// ExtractIdentity resolves the bearer token if one is present and stores the
// identity in the request context.  It never rejects the request; pair it
// with RequireIdentity to enforce authentication.
func (m *Middleware) ExtractIdentity(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity := m.resolve(r); identity != nil {
			r = r.WithContext(context.WithValue(r.Context(), identityContextKey{}, identity))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIdentity is ExtractIdentity plus a 401 when no valid bearer token is
// presented.  The response body never distinguishes why verification failed.
func (m *Middleware) RequireIdentity(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.resolve(r)
		if identity == nil {
			writeError(w, http.StatusUnauthorized, NewAuthError(ErrCodeInvalidToken, "not authorized", ""))
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), identityContextKey{}, identity))
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolve(r *http.Request) *Identity {
	for _, raw := range m.candidateTokens(r) {
		subject, err := m.Tokens.Verify(raw)
		if err != nil {
			slog.Warn("error verifying bearer token", "err", err)
			continue
		}
		identity, err := m.Store.FindIdentity(r.Context(), subject)
		if err != nil {
			if !errors.Is(err, ErrIdentityNotFound) {
				slog.Warn("error loading identity for token subject", "err", err)
			}
			continue
		}
		return identity
	}
	return nil
}

func (m *Middleware) candidateTokens(r *http.Request) []string {
	var tokens []string
	for _, v := range r.Header.Values(m.HeaderName) {
		v = strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
		if v != "" {
			tokens = append(tokens, v)
		}
	}
	if m.CookieName != "" {
		for _, cookie := range r.Cookies() {
			if cookie.Name == m.CookieName && cookie.Value != "" {
				tokens = append(tokens, cookie.Value)
			}
		}
	}
	return tokens
}
