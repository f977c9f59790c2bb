package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	ac "github.com/saasapp/authcore"
)

func testIssuer(t *testing.T) *ac.TokenIssuer {
	t.Helper()
	issuer := &ac.TokenIssuer{SigningKey: "interceptor-test-key"}
	issuer.EnsureDefaults()
	return issuer
}

func incomingContext(token string) context.Context {
	md := metadata.Pairs(DefaultMetadataKeyAuthorization, "Bearer "+token)
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestUnaryAuthInterceptor(t *testing.T) {
	issuer := testIssuer(t)
	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name       string
		ctx        context.Context
		method     string
		wantCode   codes.Code
		wantUserID string
	}{
		{
			name:       "valid token",
			ctx:        incomingContext(token),
			method:     "/auth.Identity/Me",
			wantCode:   codes.OK,
			wantUserID: "alice",
		},
		{
			name:     "missing metadata",
			ctx:      context.Background(),
			method:   "/auth.Identity/Me",
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "garbage token",
			ctx:      incomingContext("garbage"),
			method:   "/auth.Identity/Me",
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "public method without token",
			ctx:      context.Background(),
			method:   "/auth.Identity/Register",
			wantCode: codes.OK,
		},
	}

	interceptor := UnaryAuthInterceptor(NewInterceptorConfig(issuer, "/auth.Identity/Register"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSubject string
			handler := func(ctx context.Context, req any) (any, error) {
				gotSubject = SubjectFromContext(ctx)
				return "ok", nil
			}
			info := &grpc.UnaryServerInfo{FullMethod: tt.method}

			_, err := interceptor(tt.ctx, nil, info, handler)
			if status.Code(err) != tt.wantCode {
				t.Fatalf("code = %v, want %v (err: %v)", status.Code(err), tt.wantCode, err)
			}
			if tt.wantCode == codes.OK && gotSubject != tt.wantUserID {
				t.Errorf("subject = %q, want %q", gotSubject, tt.wantUserID)
			}
		})
	}
}

func TestOptionalAuthPassesUnauthenticated(t *testing.T) {
	issuer := testIssuer(t)
	interceptor := UnaryAuthInterceptor(OptionalAuthConfig(issuer))

	var gotSubject string
	handler := func(ctx context.Context, req any) (any, error) {
		gotSubject = SubjectFromContext(ctx)
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/auth.Identity/Me"}

	if _, err := interceptor(context.Background(), nil, info, handler); err != nil {
		t.Fatalf("optional auth rejected unauthenticated call: %v", err)
	}
	if gotSubject != "" {
		t.Errorf("subject = %q, want empty", gotSubject)
	}

	// A valid token still resolves.
	token, err := issuer.Issue("bob")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := interceptor(incomingContext(token), nil, info, handler); err != nil {
		t.Fatalf("optional auth rejected valid token: %v", err)
	}
	if gotSubject != "bob" {
		t.Errorf("subject = %q, want %q", gotSubject, "bob")
	}
}

func TestAppendToOutgoingContextRoundTrip(t *testing.T) {
	ctx := AppendToOutgoingContext(context.Background(), "tok123")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("no outgoing metadata")
	}
	values := md.Get(DefaultMetadataKeyAuthorization)
	if len(values) != 1 || values[0] != "Bearer tok123" {
		t.Errorf("metadata = %v", values)
	}
}
