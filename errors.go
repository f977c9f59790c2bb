package authcore

import "errors"

// Sentinel errors returned by the core components.  HTTP and gRPC layers map
// these onto status codes; nothing below this boundary leaks storage or crypto
// internals.
var (
	// ErrConflict is returned by CreateIdentity when the username or email is
	// already taken.  Recoverable: the caller retries with a different value.
	ErrConflict = errors.New("username or email already exists")

	// ErrIdentityNotFound is returned by lookups that miss.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidCredentials covers both "no such user" and "wrong password" so
	// that responses never reveal whether a login key exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned by token verification for any failure mode:
	// bad signature, malformed structure, wrong algorithm or expiry.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoLocalAccount is returned by federated resolution when the provider
	// identity matches no local account.  Accounts are never auto-created.
	ErrNoLocalAccount = errors.New("no local account for federated identity")

	// ErrMFANotEnabled is returned by TOTP verification when the identity has
	// no provisioned secret.  This is a setup-state signal, not a credential
	// failure, and is surfaced distinctly from a bad code.
	ErrMFANotEnabled = errors.New("mfa not enabled")

	// ErrInvalidCode is returned when a TOTP code fails verification.
	ErrInvalidCode = errors.New("invalid totp code")
)

// Error codes used in JSON error bodies.
const (
	ErrCodeConflict      = "conflict"
	ErrCodeInvalidCreds  = "invalid_credentials"
	ErrCodeInvalidToken  = "invalid_token"
	ErrCodeNotFound      = "not_found"
	ErrCodeForbidden     = "forbidden"
	ErrCodeMFANotEnabled = "mfa_not_enabled"
	ErrCodeInvalidCode   = "invalid_code"
	ErrCodeMissingField  = "missing_field"
)

// AuthError is the error shape returned to HTTP clients.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates an AuthError with the given code, message and optional
// field name.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
