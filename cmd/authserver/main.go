// Command authserver runs the identity core as a standalone HTTP server
// backed by the filesystem store.  Intended for development; production
// deployments embed the Service with the gorm store instead.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/saasapp/authcore"
	acoauth "github.com/saasapp/authcore/oauth2"
	"github.com/saasapp/authcore/stores/fs"

	"golang.org/x/oauth2"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	storagePath := flag.String("storage", "./authcore-data", "storage directory for the fs credential store")
	flag.Parse()

	store := fs.NewCredentialStore(*storagePath)
	service := authcore.NewService(store, os.Getenv("AUTHCORE_JWT_SECRET_KEY"))

	mux := http.NewServeMux()
	mux.Handle("/", service.Handler())

	// GitHub login is optional; it mounts only when credentials are present.
	if os.Getenv("OAUTH2_GITHUB_CLIENT_ID") != "" {
		github := acoauth.NewGithubLogin("", "", "", service.Resolver,
			func(identity *authcore.Identity, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
				service.Sessions.Open(w, r, identity)
				http.Redirect(w, r, "/me", http.StatusFound)
			})
		// The session manager's middleware must wrap the callback so the
		// login can open a session.
		mux.Handle("/federated/github/", service.Sessions.Manager.LoadAndSave(
			http.StripPrefix("/federated/github", github)))
	}

	log.Println("authserver listening on", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}
