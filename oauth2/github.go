// Package oauth2 implements the GitHub OAuth2 redirect/callback flow in front
// of the federated identity resolver.  The flow obtains a provider access
// token; the resolver then maps it to an existing local identity.  No account
// is created for a federated login that matches nothing.
package oauth2

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	ac "github.com/saasapp/authcore"
)

// HandleIdentityFunc is called after a successful callback with the resolved
// local identity and the provider token.
type HandleIdentityFunc func(identity *ac.Identity, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

// GithubLogin serves the authorize-redirect and callback endpoints for GitHub
// login.  Mount it under a prefix like /federated/github/.
type GithubLogin struct {
	Resolver       *ac.FederatedResolver
	HandleIdentity HandleIdentityFunc

	// AuthFailureURL is where the callback redirects when the exchange or
	// resolution fails.
	AuthFailureURL string

	oauthConfig oauth2.Config
	httpClient  *http.Client
	mux         *http.ServeMux
}

// NewGithubLogin builds the flow.  Empty credentials fall back to
// OAUTH2_GITHUB_CLIENT_ID / OAUTH2_GITHUB_CLIENT_SECRET /
// OAUTH2_GITHUB_CALLBACK_URL environment variables.
func NewGithubLogin(clientID, clientSecret, callbackURL string, resolver *ac.FederatedResolver, handleIdentity HandleIdentityFunc) *GithubLogin {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET"))
	}
	if callbackURL == "" {
		callbackURL = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CALLBACK_URL"))
	}

	g := &GithubLogin{
		Resolver:       resolver,
		HandleIdentity: handleIdentity,
		AuthFailureURL: "/",
		mux:            http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
	g.mux.HandleFunc("/", OauthRedirector(&g.oauthConfig))
	g.mux.HandleFunc("/callback/", g.handleCallback)
	return g
}

// SetHTTPClient overrides the HTTP client used for the code exchange.
// Intended for tests.
func (g *GithubLogin) SetHTTPClient(client *http.Client) {
	g.httpClient = client
}

func (g *GithubLogin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *GithubLogin) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie(oauthStateCookie)
	if oauthState == nil {
		http.Error(w, "missing oauth state", http.StatusBadRequest)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, MaxAge: 0})
		http.Error(w, fmt.Sprintf("invalid oauth github state: %s", r.FormValue("state")), http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	token, err := g.oauthConfig.Exchange(g.exchangeContext(r.Context()), code)
	if err != nil {
		slog.Info("invalid code exchange", "err", err)
		http.Redirect(w, r, g.AuthFailureURL, http.StatusTemporaryRedirect)
		return
	}

	identity, err := g.Resolver.Resolve(r.Context(), token.AccessToken)
	if err != nil {
		slog.Info("federated login matched no local identity", "err", err)
		http.Redirect(w, r, g.AuthFailureURL, http.StatusTemporaryRedirect)
		return
	}

	g.HandleIdentity(identity, token, w, r)
}

// exchangeContext carries the injected HTTP client into the token exchange.
func (g *GithubLogin) exchangeContext(ctx context.Context) context.Context {
	if g.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}
