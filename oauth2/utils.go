package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// oauthStateCookie carries the CSRF state between the redirect and the
// callback.
const oauthStateCookie = "oauthstate"

// OauthRedirector sends the caller to the provider's authorization URL with a
// fresh CSRF state cookie.  A callbackURL query parameter, when present, is
// remembered in a short-lived cookie so the callback knows where to return.
func OauthRedirector(oauthConfig *oauth2.Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbackURL := r.URL.Query().Get("callbackURL"); callbackURL != "" {
			http.SetCookie(w, &http.Cookie{
				Name:   "oauthCallbackURL",
				Value:  callbackURL,
				Path:   "/",
				MaxAge: 120, // keep this short
			})
		}

		state := make([]byte, 16)
		if _, err := rand.Read(state); err != nil {
			log.Println("error generating oauth state: ", err)
		}
		oauthState := base64.URLEncoding.EncodeToString(state)
		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    oauthState,
			Path:     "/",
			Expires:  time.Now().Add(time.Hour),
			HttpOnly: true,
		})

		http.Redirect(w, r, oauthConfig.AuthCodeURL(oauthState), http.StatusFound)
	}
}
