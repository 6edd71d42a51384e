// Package apitest provides an in-process fake of the event-platform API for
// tests. It serves the authentication routes, a small event catalogue and
// the superadmin area with the same status codes and error bodies as the
// real backend.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/alnah/go-eventadmin/internal/credstore"
)

// APIPrefix is the path prefix of every route.
const APIPrefix = "/api/v1"

// Backend error details.
const (
	DetailBadCredentials = "Incorrect email/phone or password"
	DetailInactive       = "Your account has been disabled"
	DetailUnauthorized   = "Could not validate credentials"
	DetailForbidden      = "Not enough permissions"
	DetailNotFound       = "Not Found"
)

// Request is a request seen by the server.
type Request struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
}

// Event is a catalogue entry.
type Event struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Capacity int    `json:"capacity"`
	Notes    string `json:"admin_notes,omitempty"`
}

type account struct {
	profile  credstore.Profile
	password string
}

type failure struct {
	status int
	body   string
}

// Server is a fake backend. Create it with New; it is closed when the test
// ends.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	accounts map[int]*account
	nextID   int
	issued   map[string]int
	serial   int
	events   []Event
	failures map[string]failure
	requests []Request
	delay    time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.ttl = d
	}
}

// WithClock sets the time source used to issue and check tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithDelay delays every response.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// New starts a fake backend.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		secret:   []byte("apitest-secret"),
		ttl:      30 * time.Minute,
		now:      time.Now,
		accounts: make(map[int]*account),
		nextID:   1,
		issued:   make(map[string]int),
		failures: make(map[string]failure),
		events: []Event{
			{ID: 1, Title: "Jazz Night", Capacity: 120},
			{ID: 2, Title: "Tech Meetup", Capacity: 80},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API base address, prefix included.
func (s *Server) BaseURL() string {
	return s.URL + APIPrefix
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.record)
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
	})

	router.Route(APIPrefix, func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/me", withMiddlewares(s.handleMe, s.requireUser))

		r.Get("/events", s.handleListEvents)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Post("/events", withMiddlewares(s.handleCreateEvent, s.requireUser, s.requireRole("organizer", credstore.RoleAdmin)))
		r.Delete("/events/{id}", withMiddlewares(s.handleDeleteEvent, s.requireUser, s.requireRole("organizer", credstore.RoleAdmin)))

		r.Route("/superadmin", func(r chi.Router) {
			r.Get("/stats", withMiddlewares(s.handleStats, s.requireUser, s.requireRole(credstore.RoleAdmin)))
			r.Get("/users", withMiddlewares(s.handleListUsers, s.requireUser, s.requireRole(credstore.RoleAdmin)))
			r.Put("/events/{id}/notes", withMiddlewares(s.handleEventNotes, s.requireUser, s.requireRole(credstore.RoleAdmin)))
		})
	})
	return router
}

func withMiddlewares(end http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	final := end
	for i := len(middlewares); i > 0; i-- {
		final = middlewares[i-1](final)
	}
	return final
}

// ---------------------------------------------------------------------------
// Test controls
// ---------------------------------------------------------------------------

// AddUser registers an active account and returns it with its assigned ID.
func (s *Server) AddUser(p credstore.Profile, password string) credstore.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	p.IsActive = true
	s.nextID++
	if p.Role == "" {
		p.Role = "participant"
	}
	if p.PreferredLanguage == "" {
		p.PreferredLanguage = "fr"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC().Truncate(time.Second)
	}
	s.accounts[p.ID] = &account{profile: p, password: password}
	return p
}

// Deactivate disables an account. Its tokens stop working and login
// answers 403.
func (s *Server) Deactivate(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[userID]; ok {
		acc.profile.IsActive = false
	}
}

// Token issues a valid token for the user, as a successful login would.
func (s *Server) Token(userID int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issue(s.accounts[userID].profile)
}

// ExpireSessions revokes every token issued so far. The next
// authenticated request answers 401.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.issued)
}

// Fail makes every request to path (without the API prefix) answer status
// with body until Restore is called.
func (s *Server) Fail(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[APIPrefix+path] = failure{status: status, body: body}
}

// Restore removes a failure installed by Fail.
func (s *Server) Restore(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, APIPrefix+path)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Events returns the current catalogue.
func (s *Server) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// ---------------------------------------------------------------------------
// Middlewares
// ---------------------------------------------------------------------------

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		f, failing := s.failures[r.URL.Path]
		delay := s.delay
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type contextKey struct{}

// requireUser resolves the bearer token to an account.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeUnauthorized(w)
			return
		}

		s.mu.Lock()
		acc, err := s.authenticate(raw)
		s.mu.Unlock()
		if err != nil {
			writeUnauthorized(w)
			return
		}
		next(w, r.WithContext(withProfile(r.Context(), acc.profile)))
	}
}

func (s *Server) requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p := profileFrom(r.Context())
			for _, role := range roles {
				if p.Role == role {
					next(w, r)
					return
				}
			}
			writeDetail(w, http.StatusForbidden, DetailForbidden)
		}
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"loc": "body", "msg": "Field required"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.lookup(username)
	if acc == nil || acc.password != password {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, DetailBadCredentials)
		return
	}
	if !acc.profile.IsActive {
		writeDetail(w, http.StatusForbidden, DetailInactive)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": s.issue(acc.profile),
		"token_type":   "bearer",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profileFrom(r.Context()))
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Events())
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	for _, e := range s.Events() {
		if e.ID == id {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Event not found")
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var e Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil || e.Title == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"loc": "title", "msg": "Field required"}},
		})
		return
	}

	s.mu.Lock()
	e.ID = len(s.events) + 1
	s.events = append(s.events, e)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Event not found")
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byRole := make(map[string]int)
	for _, acc := range s.accounts {
		byRole[acc.profile.Role]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_users":   len(s.accounts),
		"users_by_role": byRole,
		"total_events":  len(s.events),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]credstore.Profile, 0, len(s.accounts))
	for id := 1; id < s.nextID; id++ {
		acc, ok := s.accounts[id]
		if !ok || (role != "" && acc.profile.Role != role) {
			continue
		}
		users = append(users, acc.profile)
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleEventNotes(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var payload struct {
		Notes string `json:"admin_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Notes = payload.Notes
			writeJSON(w, http.StatusOK, s.events[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Event not found")
}

// ---------------------------------------------------------------------------
// Tokens and accounts (caller holds s.mu)
// ---------------------------------------------------------------------------

type tokenClaims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issue(p credstore.Profile) string {
	now := s.now()
	s.serial++
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: p.ID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        strconv.Itoa(s.serial),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	s.issued[signed] = p.ID
	return signed
}

func (s *Server) authenticate(raw string) (*account, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	var claims tokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, err
	}
	if _, ok := s.issued[raw]; !ok {
		return nil, fmt.Errorf("token revoked")
	}
	acc, ok := s.accounts[claims.UserID]
	if !ok || !acc.profile.IsActive {
		return nil, fmt.Errorf("unknown or inactive user %d", claims.UserID)
	}
	return acc, nil
}

func (s *Server) lookup(username string) *account {
	for _, acc := range s.accounts {
		if acc.profile.Email == username || (acc.profile.PhoneFull != "" && acc.profile.PhoneFull == username) {
			return acc
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, DetailUnauthorized)
}
