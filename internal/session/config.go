package session

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Connection defaults.
const (
	DefaultBaseURL     = "http://localhost:8000/api/v1"
	DefaultTimeout     = 10 * time.Second
	DefaultContentType = ContentTypeJSON
)

// Content types understood by the client.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// maxResponseSize caps the bytes read from a response body (10MB).
const maxResponseSize = 10 * 1024 * 1024

// Config is the connection configuration. It is copied by New and never
// changes afterwards.
type Config struct {
	// BaseURL is prepended to every relative request path.
	BaseURL string
	// Timeout bounds each exchange, connection to last body byte.
	Timeout time.Duration
	// ContentType is the default Content-Type of request bodies.
	ContentType string
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ContentType == "" {
		c.ContentType = DefaultContentType
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return c
}

// Validate checks that BaseURL is an absolute http(s) URL.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, ErrInvalidConfig)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must use http or https: %w", c.BaseURL, ErrInvalidConfig)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host: %w", c.BaseURL, ErrInvalidConfig)
	}
	return nil
}
