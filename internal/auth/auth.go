// Package auth signs users in and out of the event platform.
//
// Login is a two-step exchange through the session client: the form-encoded
// credentials are traded for a bearer token, then the profile is fetched
// with that token. Both are kept in the credential store so every later
// request is authenticated.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alnah/go-eventadmin/internal/credstore"
	"github.com/alnah/go-eventadmin/internal/session"
)

// Backend routes, relative to the API base address.
const (
	LoginPath   = "/auth/login"
	ProfilePath = "/auth/me"
)

// Sentinel errors.
var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrNoToken            = errors.New("login response carried no access token")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrNotSuperadmin      = errors.New("account is not a superadmin")
)

// Credentials identify a user. Username is an email address or a full
// phone number.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// tokenResponse is the login payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service runs the authentication flows. The store must be the one the
// session client reads its token from.
type Service struct {
	client *session.Client
	store  credstore.Store
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a Service.
func New(client *session.Client, store credstore.Store, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges credentials for a token and caches the user's profile.
// If the profile cannot be fetched the record is cleared, so a failed login
// never leaves a token without a user behind.
func (s *Service) Login(ctx context.Context, creds Credentials) (credstore.Record, error) {
	if err := creds.validate(); err != nil {
		return credstore.Record{}, err
	}

	form := url.Values{}
	form.Set("username", strings.TrimSpace(creds.Username))
	form.Set("password", creds.Password)

	resp, err := s.client.Post(ctx, LoginPath, form, session.WithContentType(session.ContentTypeForm))
	if err != nil {
		return credstore.Record{}, err
	}
	var tok tokenResponse
	if err := resp.Decode(&tok); err != nil {
		return credstore.Record{}, err
	}
	if tok.AccessToken == "" {
		return credstore.Record{}, ErrNoToken
	}

	// The profile request reads the token from the store.
	if err := s.store.Set(ctx, credstore.Record{Token: tok.AccessToken}); err != nil {
		return credstore.Record{}, fmt.Errorf("failed to store token: %w", err)
	}

	profile, err := s.fetchProfile(ctx)
	if err != nil {
		s.discard(ctx)
		return credstore.Record{}, err
	}

	record := credstore.Record{Token: tok.AccessToken, User: profile}
	if err := s.store.Set(ctx, record); err != nil {
		s.discard(ctx)
		return credstore.Record{}, fmt.Errorf("failed to store profile: %w", err)
	}

	s.logger.Info().Int("user_id", profile.ID).Str("role", profile.Role).Msg("signed in")
	return record, nil
}

// SuperadminLogin signs in and requires the admin role. Any other role is
// signed out again and ErrNotSuperadmin is returned.
func (s *Service) SuperadminLogin(ctx context.Context, creds Credentials) (credstore.Record, error) {
	record, err := s.Login(ctx, creds)
	if err != nil {
		return credstore.Record{}, err
	}
	if !record.User.IsSuperadmin() {
		s.discard(ctx)
		return credstore.Record{}, fmt.Errorf("role %q: %w", record.User.Role, ErrNotSuperadmin)
	}
	return record, nil
}

// Logout clears the credential record.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	s.logger.Info().Msg("signed out")
	return nil
}

// Current returns the stored record. It does not contact the backend.
func (s *Service) Current(ctx context.Context) (credstore.Record, error) {
	record, err := s.store.Get(ctx)
	if err != nil {
		return credstore.Record{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	return record, nil
}

// Refresh fetches the profile again and updates the cached copy. A 401
// invalidates the session through the client as for any other request.
func (s *Service) Refresh(ctx context.Context) (credstore.Record, error) {
	record, err := s.Current(ctx)
	if err != nil {
		return credstore.Record{}, err
	}
	if record.Token == "" {
		return credstore.Record{}, ErrNotSignedIn
	}

	profile, err := s.fetchProfile(ctx)
	if err != nil {
		return credstore.Record{}, err
	}
	record.User = profile
	if err := s.store.Set(ctx, record); err != nil {
		return credstore.Record{}, fmt.Errorf("failed to store profile: %w", err)
	}
	return record, nil
}

func (s *Service) fetchProfile(ctx context.Context) (*credstore.Profile, error) {
	resp, err := s.client.Get(ctx, ProfilePath)
	if err != nil {
		return nil, err
	}
	var p credstore.Profile
	if err := resp.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// discard clears a half-built session. A failure is only logged since the
// caller already returns the original error.
func (s *Service) discard(ctx context.Context) {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear credentials")
	}
}
