// Package credstore persists the credential record shared by the session
// client and the authentication flow: the bearer token and the cached
// profile of the signed-in user.
//
// Both entries live under fixed, well-known keys so that any process
// sharing the same storage namespace sees the same session. A missing key
// is a valid signed-out state, not an error.
package credstore

import (
	"context"
	"errors"
	"time"
)

// Well-known keys.
const (
	// KeyToken holds the bearer token as a plain string.
	KeyToken = "token"
	// KeyUser holds the JSON-encoded Profile.
	KeyUser = "user"
)

// RoleAdmin is the backend role allowed in the superadmin area.
const RoleAdmin = "admin"

// ErrCorrupt indicates a stored entry could not be decoded.
var ErrCorrupt = errors.New("credential store entry is corrupt")

// Profile is the cached user record as returned by GET /auth/me.
type Profile struct {
	ID                int       `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	CountryCode       string    `json:"country_code,omitempty"`
	CountryName       string    `json:"country_name,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	PhoneCountryCode  string    `json:"phone_country_code,omitempty"`
	PhoneFull         string    `json:"phone_full,omitempty"`
	Role              string    `json:"role"`
	PreferredLanguage string    `json:"preferred_language,omitempty"`
	IsActive          bool      `json:"is_active"`
	IsVerified        bool      `json:"is_verified"`
	CreatedAt         time.Time `json:"created_at,omitzero"`
	UpdatedAt         time.Time `json:"updated_at,omitzero"`
}

// FullName returns "First Last", or the email when no name is known.
func (p *Profile) FullName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	case p.LastName != "":
		return p.LastName
	default:
		return p.Email
	}
}

// IsSuperadmin reports whether the profile may use the superadmin area.
func (p *Profile) IsSuperadmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Record is the credential record. The zero value is the signed-out state.
type Record struct {
	Token string
	User  *Profile
}

// Empty reports whether neither the token nor the profile is present.
func (r Record) Empty() bool {
	return r.Token == "" && r.User == nil
}

// SignedIn reports whether a token is present.
func (r Record) SignedIn() bool {
	return r.Token != ""
}

// Store reads and writes the credential record.
//
// Clear must remove the token and the profile together: a store never
// keeps one without the other after a Clear.
type Store interface {
	Get(ctx context.Context) (Record, error)
	Set(ctx context.Context, r Record) error
	Clear(ctx context.Context) error
}
