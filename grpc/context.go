// Package grpc exposes the bearer-token verification of authcore to gRPC
// services: interceptors that validate the authorization metadata on incoming
// calls and context helpers for reading the verified subject.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// DefaultMetadataKeyAuthorization is the gRPC metadata key carrying the
// bearer token.
const DefaultMetadataKeyAuthorization = "authorization"

type subjectContextKey struct{}

// Config holds the metadata key configuration.
type Config struct {
	// MetadataKeyAuthorization is the metadata key for the bearer token.
	// Defaults to "authorization"; a "Bearer " prefix is stripped if present.
	MetadataKeyAuthorization string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKeyAuthorization: DefaultMetadataKeyAuthorization}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
}

// SubjectFromContext returns the verified token subject placed in the context
// by the interceptors, or "" if the call was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectContextKey{}).(string)
	return subject
}

// ContextWithSubject returns a context carrying the verified subject.  Used
// by the interceptors and by tests that bypass them.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// AppendToOutgoingContext attaches a bearer token to an outgoing gRPC call.
func AppendToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, "Bearer "+token)
}

// bearerFromMetadata extracts the raw token from incoming metadata.
func bearerFromMetadata(ctx context.Context, config *Config) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(config.MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))
}
