package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultUserInfoURL is the GitHub identity endpoint.
const DefaultUserInfoURL = "https://api.github.com/user"

// FederatedResolver exchanges an externally-issued access token for a local
// identity.  It makes exactly one outbound call per resolution and holds no
// store transaction while waiting on the network.  Provider responses are not
// cached here; callers can layer caching on top if they need it.
type FederatedResolver struct {
	// UserInfoURL is the provider's identity endpoint.  Defaults to GitHub's.
	// Overridable for testing.
	UserInfoURL string

	// Client is the HTTP client used for the outbound call.  If nil, a client
	// with a bounded timeout is used; the call must never block indefinitely.
	Client *http.Client

	// Store is the local identity lookup.
	Store CredentialStore
}

func (f *FederatedResolver) userInfoURL() string {
	if f.UserInfoURL != "" {
		return f.UserInfoURL
	}
	return DefaultUserInfoURL
}

func (f *FederatedResolver) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Resolve calls the provider with the access token, extracts the
// {login, email} pair and looks up an existing local identity, first by
// login-as-username and then by email.  Returns ErrNoLocalAccount when
// neither matches: this core never auto-provisions accounts from federated
// logins.  A failed outbound call is not retried.
func (f *FederatedResolver) Resolve(ctx context.Context, accessToken string) (*Identity, error) {
	fed, err := f.fetchUserInfo(ctx, accessToken)
	if err != nil {
		slog.Warn("federated identity fetch failed", "err", err)
		return nil, ErrNoLocalAccount
	}

	if fed.Login != "" {
		identity, err := f.Store.FindIdentity(ctx, fed.Login)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, ErrIdentityNotFound) {
			return nil, err
		}
	}
	if fed.Email != "" {
		identity, err := f.Store.FindIdentity(ctx, fed.Email)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, ErrIdentityNotFound) {
			return nil, err
		}
	}
	return nil, ErrNoLocalAccount
}

func (f *FederatedResolver) fetchUserInfo(ctx context.Context, accessToken string) (*FederatedIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response: %w", err)
	}

	var fed FederatedIdentity
	if err := json.Unmarshal(contents, &fed); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return &fed, nil
}
