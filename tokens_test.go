package authcore_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	ac "github.com/saasapp/authcore"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := &ac.TokenIssuer{SigningKey: "test-signing-key"}

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "alice" {
		t.Errorf("subject = %q, want alice", subject)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	// A negative TTL puts the expiry in the past at issuance.
	issuer := &ac.TokenIssuer{SigningKey: "test-signing-key", TTL: -time.Minute}

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	verifier := &ac.TokenIssuer{SigningKey: "test-signing-key"}
	if _, err := verifier.Verify(token); !errors.Is(err, ac.ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyFailsClosed(t *testing.T) {
	issuer := &ac.TokenIssuer{SigningKey: "test-signing-key"}
	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Tampered payload: flip a character in the claims segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	otherKey := &ac.TokenIssuer{SigningKey: "a-different-key"}
	foreign, err := otherKey.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"tampered payload", tampered},
		{"signed with different key", foreign},
		{"malformed", "not-a-token"},
		{"empty", ""},
		{"missing signature", parts[0] + "." + parts[1] + "."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			subject, err := issuer.Verify(tc.token)
			if !errors.Is(err, ac.ErrInvalidToken) {
				t.Errorf("got err %v, want ErrInvalidToken", err)
			}
			if subject != "" {
				t.Errorf("got partial subject %q, want empty", subject)
			}
		})
	}
}
