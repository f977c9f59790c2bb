package authcore

import (
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long issued bearer tokens stay valid.  There is no
// refresh mechanism; an expired token requires re-authentication.
const DefaultTokenTTL = 30 * time.Minute

// TokenIssuer issues and verifies the signed bearer tokens that carry a
// verified identity between requests.  One instance holds the symmetric
// signing key for the process lifetime; build it once at startup and share it
// with the HTTP middleware and the gRPC interceptors.
type TokenIssuer struct {
	// SigningKey is the HMAC-SHA256 key.  If empty, EnsureDefaults falls back
	// to the AUTHCORE_JWT_SECRET_KEY environment variable.
	SigningKey string

	// Issuer is the "iss" claim on issued tokens.
	Issuer string

	// TTL is the token lifetime.  Defaults to DefaultTokenTTL.
	TTL time.Duration
}

// EnsureDefaults fills in unset fields.
func (t *TokenIssuer) EnsureDefaults() *TokenIssuer {
	if t.SigningKey == "" {
		t.SigningKey = strings.TrimSpace(os.Getenv("AUTHCORE_JWT_SECRET_KEY"))
	}
	if t.Issuer == "" {
		t.Issuer = "authcore"
	}
	if t.TTL <= 0 {
		t.TTL = DefaultTokenTTL
	}
	return t
}

// Issue mints a compact signed token whose subject is the given username and
// whose expiry is now + TTL.
func (t *TokenIssuer) Issue(subject string) (string, error) {
	t.EnsureDefaults()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": t.Issuer,
		"exp": now.Add(t.TTL).Unix(),
		"iat": now.Unix(),
	})
	return token.SignedString([]byte(t.SigningKey))
}

// Verify parses and validates a token string and returns its subject.
// It fails closed: a bad signature, an unexpected signing algorithm, a
// malformed token or an expiry in the past all return ErrInvalidToken, and
// no partial subject is ever returned.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	t.EnsureDefaults()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(t.SigningKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
