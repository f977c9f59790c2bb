package authcore

import (
	"context"
	"regexp"
)

// Role is the access tier of an identity.
type Role string

const (
	RoleBasic   Role = "basic"
	RolePremium Role = "premium"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleBasic || r == RolePremium
}

// Identity is the durable user record.  HashedSecret is the bcrypt output;
// the plaintext password never appears here.  TOTPSecret is empty until MFA
// has been provisioned and is only ever overwritten, never appended to.
type Identity struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	HashedSecret string `json:"-"`
	Role         Role   `json:"role"`
	TOTPSecret   string `json:"-"`
}

// CredentialStore owns Identity records.  Username and email are each
// globally unique; the backing store's uniqueness constraint is the
// serialization point for concurrent creates, and a violated constraint
// surfaces as ErrConflict rather than a raw storage error.
type CredentialStore interface {
	// CreateIdentity creates a new record atomically.  Returns ErrConflict if
	// the username or email is already taken.
	CreateIdentity(ctx context.Context, username, email, hashedSecret string, role Role) (*Identity, error)

	// FindIdentity looks up an identity by login key.  The key is classified
	// as an email or username (see ClassifyLoginKey) and looked up on the
	// corresponding unique index.  Returns ErrIdentityNotFound on a miss.
	FindIdentity(ctx context.Context, loginKey string) (*Identity, error)

	// UpdateTOTPSecret overwrites the TOTP secret for the identity.
	// Idempotent.
	UpdateTOTPSecret(ctx context.Context, identityID, secret string) error
}

// LoginKeyType classifies what kind of login key the caller supplied.
type LoginKeyType string

const (
	LoginKeyEmail    LoginKeyType = "email"
	LoginKeyUsername LoginKeyType = "username"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ClassifyLoginKey decides whether a login key is an email address or a
// username.  One endpoint accepts either identifier without a discriminator
// field; anything that does not parse as an email is treated as a username.
func ClassifyLoginKey(key string) LoginKeyType {
	if emailRegex.MatchString(key) {
		return LoginKeyEmail
	}
	return LoginKeyUsername
}

// FederatedIdentity is the {login, email} pair returned by a third-party
// provider for an access token.  It is ephemeral: used only to look up an
// existing Identity, never stored.
type FederatedIdentity struct {
	Login string `json:"login"`
	Email string `json:"email"`
}
