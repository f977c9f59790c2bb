package authcore_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	ac "github.com/saasapp/authcore"
)

// newCookieClient returns a client that carries cookies across requests, so a
// test can behave like one browser session.
func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestSessionOpenReadClose(t *testing.T) {
	sessions := ac.NewSessions()
	identity := &ac.Identity{ID: "id-123", Username: "alice"}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		sessions.Open(w, r, identity)
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sessions.IdentityID(r)))
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessions.Close(w, r)
	})

	server := httptest.NewServer(sessions.Manager.LoadAndSave(mux))
	defer server.Close()

	jar := newCookieClient(t)

	resp, err := jar.Get(server.URL + "/whoami")
	if err != nil {
		t.Fatalf("GET /whoami: %v", err)
	}
	if body := readBody(t, resp); body != "" {
		t.Errorf("identity id before login = %q, want empty", body)
	}

	resp, err = jar.Get(server.URL + "/login")
	if err != nil {
		t.Fatalf("GET /login: %v", err)
	}
	resp.Body.Close()

	var marker *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == ac.DefaultSessionCookie {
			marker = cookie
		}
	}
	if marker == nil || marker.Value != "id-123" {
		t.Fatalf("marker cookie = %+v, want value id-123", marker)
	}

	resp, err = jar.Get(server.URL + "/whoami")
	if err != nil {
		t.Fatalf("GET /whoami: %v", err)
	}
	if body := readBody(t, resp); body != "id-123" {
		t.Errorf("identity id after login = %q, want id-123", body)
	}

	resp, err = jar.Get(server.URL + "/logout")
	if err != nil {
		t.Fatalf("GET /logout: %v", err)
	}
	resp.Body.Close()

	resp, err = jar.Get(server.URL + "/whoami")
	if err != nil {
		t.Fatalf("GET /whoami: %v", err)
	}
	if body := readBody(t, resp); body != "" {
		t.Errorf("identity id after logout = %q, want empty", body)
	}
}
