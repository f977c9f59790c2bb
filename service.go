package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Service wires the identity core into an HTTP surface.  Everything here is
// request-scoped and stateless between calls; the only shared mutable
// resource is the credential store behind Store.
type Service struct {
	Store    CredentialStore
	Hasher   *Hasher
	Tokens   *TokenIssuer
	MFA      *MFA
	Resolver *FederatedResolver
	Sessions *Sessions

	middleware *Middleware
}

// NewService builds a Service with the given store and signing key and
// reasonable defaults for everything else.
func NewService(store CredentialStore, signingKey string) *Service {
	s := &Service{
		Store:  store,
		Tokens: &TokenIssuer{SigningKey: signingKey},
	}
	return s.EnsureDefaults()
}

// EnsureDefaults fills in any component left unset.
func (s *Service) EnsureDefaults() *Service {
	if s.Hasher == nil {
		s.Hasher = &Hasher{}
	}
	if s.Tokens == nil {
		s.Tokens = &TokenIssuer{}
	}
	s.Tokens.EnsureDefaults()
	if s.MFA == nil {
		s.MFA = &MFA{Issuer: s.Tokens.Issuer, Store: s.Store}
	}
	if s.Resolver == nil {
		s.Resolver = &FederatedResolver{Store: s.Store}
	}
	if s.Sessions == nil {
		s.Sessions = NewSessions()
	}
	s.Sessions.EnsureDefaults()
	if s.middleware == nil {
		s.middleware = &Middleware{Tokens: s.Tokens, Store: s.Store}
	}
	return s
}

// Handler returns the routed HTTP surface, wrapped in the session manager's
// load/save middleware.
func (s *Service) Handler() http.Handler {
	s.EnsureDefaults()
	r := mux.NewRouter()

	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)
	r.Handle("/me", s.middleware.RequireIdentity(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)
	r.Handle("/mfa/enable", s.middleware.RequireIdentity(http.HandlerFunc(s.handleMFAEnable))).Methods(http.MethodPost)
	r.HandleFunc("/mfa/verify", s.handleMFAVerify).Methods(http.MethodPost)
	r.HandleFunc("/federated/session", s.handleFederatedSession).Methods(http.MethodGet)
	r.Handle("/session/login", s.middleware.RequireIdentity(http.HandlerFunc(s.handleSessionLogin))).Methods(http.MethodPost)
	r.Handle("/session/logout", s.middleware.RequireIdentity(http.HandlerFunc(s.handleSessionLogout))).Methods(http.MethodPost)

	return s.Sessions.Manager.LoadAndSave(r)
}

// Authenticate checks a password against the identity found for the login
// key.  Both a lookup miss and a wrong password return ErrInvalidCredentials
// so callers cannot probe which usernames exist.
func (s *Service) Authenticate(ctx context.Context, loginKey, password string) (*Identity, error) {
	identity, err := s.Store.FindIdentity(ctx, loginKey)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.Hasher.Verify(password, identity.HashedSecret) {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     Role   `json:"role,omitempty"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "invalid request body", ""))
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "username, password and email required", ""))
		return
	}
	role := req.Role
	if role == "" {
		role = RoleBasic
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "invalid role", "role"))
		return
	}

	hashed, err := s.Hasher.Hash(req.Password)
	if err != nil {
		log.Println("error hashing password: ", err)
		writeError(w, http.StatusInternalServerError, NewAuthError("server_error", "failed to register", ""))
		return
	}

	identity, err := s.Store.CreateIdentity(r.Context(), req.Username, req.Email, hashed, role)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, NewAuthError(ErrCodeConflict, "username or email already exists", ""))
			return
		}
		log.Println("error creating identity: ", err)
		writeError(w, http.StatusInternalServerError, NewAuthError("server_error", "failed to register", ""))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"username": identity.Username,
		"email":    identity.Email,
	})
}

func (s *Service) handleToken(w http.ResponseWriter, r *http.Request) {
	// The token endpoint takes a form body, OAuth2 password-grant style.
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "error parsing form", ""))
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "username and password required", ""))
		return
	}

	identity, err := s.Authenticate(r.Context(), username, password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, NewAuthError(ErrCodeInvalidCreds, "incorrect username or password", ""))
		return
	}

	token, err := s.Tokens.Issue(identity.Username)
	if err != nil {
		log.Println("error signing token: ", err)
		writeError(w, http.StatusInternalServerError, NewAuthError("server_error", "failed to create token", ""))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, identitySummary(identity))
}

func (s *Service) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	provisioned, err := s.MFA.Provision(r.Context(), identity)
	if err != nil {
		log.Println("error provisioning totp: ", err)
		writeError(w, http.StatusInternalServerError, NewAuthError("server_error", "failed to enable mfa", ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totp_uri":     provisioned.ProvisioningURI,
		"current_code": provisioned.CurrentCode,
	})
}

type mfaVerifyRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

func (s *Service) handleMFAVerify(w http.ResponseWriter, r *http.Request) {
	var req mfaVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "invalid request body", ""))
		return
	}

	identity, err := s.Store.FindIdentity(r.Context(), req.Username)
	if err != nil {
		// Uniform with a bad code so the endpoint cannot be used to probe
		// which usernames exist.
		writeError(w, http.StatusUnauthorized, NewAuthError(ErrCodeInvalidCode, "invalid totp code", ""))
		return
	}

	switch err := s.MFA.VerifyCode(r.Context(), identity, req.Code); {
	case errors.Is(err, ErrMFANotEnabled):
		writeError(w, http.StatusBadRequest, NewAuthError(ErrCodeMFANotEnabled, "mfa not enabled", ""))
	case errors.Is(err, ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, NewAuthError(ErrCodeInvalidCode, "invalid totp code", ""))
	case err != nil:
		log.Println("error verifying totp: ", err)
		writeError(w, http.StatusInternalServerError, NewAuthError("server_error", "failed to verify code", ""))
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": "totp code verified"})
	}
}

func (s *Service) handleFederatedSession(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if accessToken == "" {
		writeError(w, http.StatusForbidden, NewAuthError(ErrCodeForbidden, "token not valid", ""))
		return
	}

	identity, err := s.Resolver.Resolve(r.Context(), accessToken)
	if err != nil {
		if !errors.Is(err, ErrNoLocalAccount) {
			log.Println("error resolving federated identity: ", err)
		}
		writeError(w, http.StatusForbidden, NewAuthError(ErrCodeForbidden, "token not valid", ""))
		return
	}
	writeJSON(w, http.StatusOK, identitySummary(identity))
}

func (s *Service) handleSessionLogin(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	s.Sessions.Open(w, r, identity)
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged in"})
}

func (s *Service) handleSessionLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Close(w, r)
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func identitySummary(identity *Identity) map[string]any {
	return map[string]any{
		"username": identity.Username,
		"email":    identity.Email,
		"role":     identity.Role,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Println("error encoding response: ", err)
	}
}

func writeError(w http.ResponseWriter, status int, authErr *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(authErr); err != nil {
		log.Println("error encoding error response: ", err)
	}
}
