// Package authcore is the identity and access-control core for a multi-tenant
// service.  It issues and validates signed bearer tokens, enforces password
// and TOTP verification, resolves third-party access tokens to local
// identities, and manages a lightweight cookie session marker.
//
// # Architecture
//
// Identity: the durable user record, owned by a CredentialStore.  Username
// and email are each globally unique and usable interchangeably as a login
// key.
//
// Bearer token: a short-lived HMAC-SHA256 signed artifact carrying the
// username as its subject.  Issued on login, verified on every request; there
// is no refresh mechanism.
//
// MFA: per-identity TOTP secrets, provisioned as an otpauth:// URI for
// authenticator apps and verified with clock-skew tolerance.
//
// Federated identity: an access token from an external provider resolved to
// a local account by matching login and email.  No account is ever created
// from a federated login.
//
// # Basic Usage
//
// Pick a store backend and wire up the service:
//
//	import (
//	    "github.com/saasapp/authcore"
//	    "github.com/saasapp/authcore/stores/fs"
//	)
//
//	store := fs.NewCredentialStore("/path/to/storage")
//	service := authcore.NewService(store, os.Getenv("AUTHCORE_JWT_SECRET_KEY"))
//	http.ListenAndServe(":8080", service.Handler())
//
// For production, the gorm backend in stores/gorm maps the same
// CredentialStore contract onto a relational database and relies on its
// unique indexes to serialize concurrent registration.
package authcore
