package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token cannot be decoded.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the payload of a backend access token.
type Claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token without verifying its signature. The result is
// for display only; the backend remains the authority on validity.
func ParseClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	return &claims, nil
}

// Expiry returns the expiration time, if the token carries one.
func (c *Claims) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// Remaining returns the lifetime left at now, zero once expired or when the
// token has no expiry.
func (c *Claims) Remaining(now time.Time) time.Duration {
	exp, ok := c.Expiry()
	if !ok || !exp.After(now) {
		return 0
	}
	return exp.Sub(now)
}

// Expired reports whether the token has expired at now.
func (c *Claims) Expired(now time.Time) bool {
	exp, ok := c.Expiry()
	return ok && !exp.After(now)
}
