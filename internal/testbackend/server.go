// Package testbackend emulates the finance backend's authentication endpoints and one
// protected resource. It backs Controller, Gateway and CLI tests.
package testbackend

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/jwt"
)

// Paths served by [Server].
const (
	PathLogin    = "/auth/login"
	PathRegister = "/users"
	PathRefresh  = "/auth/refresh"
	PathUser     = "/accounts/user"
	PathEcho     = "/accounts/echo"
)

type user struct {
	id       int64
	name     string
	surname  string
	email    string
	password string
}

// Server is an in-memory backend. Access tokens are HS256 JWTs with a unique subject so
// every issue yields a distinct string; refresh tokens are opaque and single-use.
type Server struct {
	issuer *jwt.Issuer

	mu            sync.Mutex
	nextID        int64
	users         map[string]*user
	refresh       map[string]int64
	revoked       map[string]bool
	issued        []string
	authHeaders   [][]string
	omitRefresh   bool
	refreshStatus int
	refreshHook   func()

	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
}

// New returns a Server signing with key. ttl is the access token lifetime.
func New(key []byte, ttl time.Duration) (*Server, error) {
	issuer, err := jwt.NewIssuer(key, ttl)
	if err != nil {
		return nil, err
	}
	return &Server{
		issuer:  issuer,
		users:   make(map[string]*user),
		refresh: make(map[string]int64),
		revoked: make(map[string]bool),
	}, nil
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post(PathLogin, s.login)
	r.Post(PathRegister, s.register)
	r.Post(PathRefresh, s.refreshTokens)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAccess)
		r.Get(PathUser, s.currentUser)
		r.Post(PathEcho, s.echo)
	})
	return r
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(name, surname, email, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, surname, email, password)
}

func (s *Server) addUserLocked(name, surname, email, password string) int64 {
	s.nextID++
	s.users[strings.ToLower(email)] = &user{
		id:       s.nextID,
		name:     name,
		surname:  surname,
		email:    email,
		password: password,
	}
	return s.nextID
}

// IssuePair mints a valid token pair for userID, as a login would.
func (s *Server) IssuePair(userID int64) (access, refresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issuePairLocked(userID)
}

// IssueExpired mints an access token whose exp is already in the past.
func (s *Server) IssueExpired(userID int64) (string, error) {
	now := time.Now()
	return s.issuer.Sign(jwt.Claims{
		UserID:    userID,
		Subject:   uuid.NewString(),
		IssuedAt:  now.Add(-2 * time.Hour).Unix(),
		ExpiresAt: now.Add(-time.Hour).Unix(),
	})
}

// RevokeAccess makes every access token issued so far fail with 401 on protected routes.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range s.issued {
		s.revoked[tok] = true
	}
}

// RejectAllAccess makes protected routes answer 401 for every token, including ones
// issued later.
func (s *Server) RejectAllAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked["*"] = true
}

// SetRefreshStatus forces the refresh endpoint to answer with status. Zero restores
// normal behaviour.
func (s *Server) SetRefreshStatus(status int) {
	s.mu.Lock()
	s.refreshStatus = status
	s.mu.Unlock()
}

// SetRefreshHook installs a function run at the start of every refresh request, before
// any state is read. Tests use it to hold refreshes in flight.
func (s *Server) SetRefreshHook(hook func()) {
	s.mu.Lock()
	s.refreshHook = hook
	s.mu.Unlock()
}

// OmitRefreshToken makes login and registration issue an access token only.
func (s *Server) OmitRefreshToken(omit bool) {
	s.mu.Lock()
	s.omitRefresh = omit
	s.mu.Unlock()
}

func (s *Server) LoginCalls() int64   { return s.loginCalls.Load() }
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// AuthorizationHeaders returns the Authorization values seen on protected routes, one
// slice per request.
func (s *Server) AuthorizationHeaders() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.authHeaders))
	for i, h := range s.authHeaders {
		out[i] = append([]string(nil), h...)
	}
	return out
}

func (s *Server) issuePairLocked(userID int64) (string, string, error) {
	access, err := s.issueAccessLocked(userID)
	if err != nil {
		return "", "", err
	}
	refresh := uuid.NewString()
	s.refresh[refresh] = userID
	return access, refresh, nil
}

func (s *Server) issueAccessLocked(userID int64) (string, error) {
	now := time.Now()
	access, err := s.issuer.Sign(jwt.Claims{
		UserID:    userID,
		Subject:   uuid.NewString(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.issuer.TTL()).Unix(),
	})
	if err != nil {
		return "", err
	}
	s.issued = append(s.issued, access)
	return access, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)

	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.ToLower(in.Email)]
	if !ok || u.password != in.Password {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	s.writePairLocked(w, http.StatusOK, u.id)
}

type registerRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Email == "" || in.Password == "" || in.Name == "" || in.Surname == "" {
		writeError(w, http.StatusUnprocessableEntity, "name, surname, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[strings.ToLower(in.Email)]; exists {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	id := s.addUserLocked(in.Name, in.Surname, in.Email, in.Password)
	s.writePairLocked(w, http.StatusCreated, id)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	hook := s.refreshHook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	var in refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshStatus != 0 {
		writeError(w, s.refreshStatus, "refresh unavailable")
		return
	}
	userID, ok := s.refresh[in.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refresh, in.RefreshToken)

	access, refresh, err := s.issuePairLocked(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) writePairLocked(w http.ResponseWriter, status int, userID int64) {
	var (
		resp tokenResponse
		err  error
	)
	if s.omitRefresh {
		resp.AccessToken, err = s.issueAccessLocked(userID)
	} else {
		resp.AccessToken, resp.RefreshToken, err = s.issuePairLocked(userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, status, resp)
}

type userIDKey struct{}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.Header.Values("Authorization")

		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, append([]string(nil), values...))
		s.mu.Unlock()

		if len(values) != 1 || !strings.HasPrefix(values[0], "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		token := strings.TrimPrefix(values[0], "Bearer ")

		s.mu.Lock()
		revoked := s.revoked["*"] || s.revoked[token]
		s.mu.Unlock()
		if revoked {
			writeError(w, http.StatusUnauthorized, "Token revoked")
			return
		}

		claims, err := s.issuer.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), claims.UserID)))
	})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	id := userIDFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id == id {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":      u.id,
				"name":    u.name,
				"surname": u.surname,
				"email":   u.email,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "User not found")
}

func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
