// Package session implements the shared HTTP session client.
//
// Every call to the backend goes through one *Client, which runs two
// stages around the transport:
//
//   - outbound: injects "Authorization: Bearer <token>" from the credential
//     store, then runs any extra request interceptors in order;
//   - inbound: returns successful responses untouched and turns every
//     failure into exactly one *apierr.Error. A 401 clears the credential
//     record and redirects to the matching login surface before the error
//     is returned.
//
// Nothing is retried. The client is safe for concurrent use; concurrent
// 401s each clear the record and redirect independently.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-eventadmin/internal/apierr"
	"github.com/alnah/go-eventadmin/internal/credstore"
	"github.com/alnah/go-eventadmin/internal/lang"
)

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestInterceptor runs on every outgoing request, after the bearer token
// has been attached. A returned error aborts the call as a request-setup
// failure.
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// Client is the shared session client.
type Client struct {
	cfg        Config
	base       *url.URL
	httpClient httpDoer
	store      credstore.Store
	nav        Navigator
	language   string
	logger     zerolog.Logger
	outbound   []RequestInterceptor
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for exchange and session events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithLanguage sets the language of the fixed error messages.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = lang.Resolve(language)
	}
}

// WithRequestInterceptor appends an outbound interceptor. Interceptors run
// in registration order, always after the bearer token is attached.
func WithRequestInterceptor(fn RequestInterceptor) Option {
	return func(c *Client) {
		if fn != nil {
			c.outbound = append(c.outbound, fn)
		}
	}
}

// withHTTPClient sets a custom HTTP client (for testing).
func withHTTPClient(client httpDoer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a Client. A nil store behaves as an empty in-memory store and
// a nil nav ignores redirects.
func New(cfg Config, store credstore.Store, nav Navigator, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, ErrInvalidConfig)
	}
	if store == nil {
		store = &credstore.Memory{}
	}
	if nav == nil {
		nav = nopNavigator{}
	}

	c := &Client{
		cfg:      cfg,
		base:     base,
		store:    store,
		nav:      nav,
		language: lang.Default,
		logger:   zerolog.Nop(),
	}
	c.outbound = []RequestInterceptor{c.authorize}
	for _, opt := range opts {
		opt(c)
	}
	// Create HTTP client after options are applied.
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return c, nil
}

// Config returns the connection configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// Post issues a POST request with body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

// Put issues a PUT request with body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

// Patch issues a PATCH request with body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body, opts...)
}

// Do runs one exchange through the pipeline.
//
// body may be nil, an io.Reader or []byte (sent as is), a url.Values or
// map[string]string when the content type is ContentTypeForm, or any value
// encodable as JSON. On failure the returned error is always an
// *apierr.Error and the Response is nil.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	ro := requestOptions{
		header:      make(http.Header),
		query:       make(url.Values),
		contentType: c.cfg.ContentType,
	}
	for _, opt := range opts {
		opt(&ro)
	}

	req, err := c.newRequest(ctx, method, path, body, ro)
	if err != nil {
		return nil, c.reject(ctx, method, path, "", apierr.Outcome{Err: err})
	}

	// Outbound stage.
	for _, intercept := range c.outbound {
		if err := intercept(ctx, req); err != nil {
			return nil, c.reject(ctx, method, path, "", apierr.Outcome{Err: err})
		}
	}
	requestID := req.Header.Get(HeaderRequestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.reject(ctx, method, path, requestID, apierr.Outcome{Sent: true, Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	// Read one byte past the limit so an oversized body is detected
	// rather than cut short.
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if readErr == nil && len(data) > maxResponseSize {
		data = data[:maxResponseSize]
		readErr = fmt.Errorf("more than %d bytes: %w", maxResponseSize, ErrResponseTooLarge)
	}

	// Inbound stage.
	if isSuccess(resp.StatusCode) {
		if readErr != nil {
			return nil, c.reject(ctx, method, path, requestID, apierr.Outcome{Sent: true, Err: readErr})
		}
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("request completed")
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Data: data}, nil
	}

	return nil, c.reject(ctx, method, path, requestID, apierr.Outcome{
		Sent:   true,
		Status: resp.StatusCode,
		Body:   data,
		Err:    readErr,
	})
}

// authorize is the first outbound interceptor. A store failure is logged
// and the request proceeds without credentials.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	record, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("credential store unavailable, sending request without token")
		return nil
	}
	if record.Token != "" {
		req.Header.Set("Authorization", "Bearer "+record.Token)
	}
	return nil
}

// reject classifies a failure and runs the session-invalidation side
// effects for ClassAuth.
func (c *Client) reject(ctx context.Context, method, path, requestID string, o apierr.Outcome) error {
	apiErr := apierr.Classify(o, c.language)

	event := c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID)
	if apiErr.HasStatus() {
		event = event.Int("status", apiErr.Status)
	}
	event.Str("class", apiErr.Class.String()).
		AnErr("cause", o.Err).
		Msg("request failed")

	if apiErr.Class == apierr.ClassAuth {
		c.invalidate(ctx)
	}
	return apiErr
}

// invalidate clears the credential record and redirects to the login
// surface matching the current location.
func (c *Client) invalidate(ctx context.Context) {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear credentials")
	}
	location := c.nav.Location()
	target := LoginTarget(location)
	c.logger.Info().Str("location", location).Str("redirect", target).Msg("session invalidated")
	c.nav.Redirect(target)
}

// newRequest builds the outgoing request from path, body and options.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, ro requestOptions) (*http.Request, error) {
	target, err := c.resolve(path, ro.query)
	if err != nil {
		return nil, err
	}

	reader, err := encodeBody(body, ro.contentType)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", ContentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", ro.contentType)
	}
	for key, values := range ro.header {
		req.Header[key] = values
	}
	return req, nil
}

// resolve joins path to the base URL and merges query parameters.
// Absolute http(s) URLs are accepted only on the base URL's origin.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	absolute := strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
	raw := path
	if !absolute {
		raw = c.cfg.BaseURL + "/" + strings.TrimPrefix(path, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if absolute && !sameOrigin(u, c.base) {
		return "", fmt.Errorf("%s://%s: %w", u.Scheme, u.Host, ErrForeignURL)
	}
	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encodeBody encodes body according to contentType.
func encodeBody(body any, contentType string) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	}

	if mediaType(contentType) == ContentTypeForm {
		switch b := body.(type) {
		case url.Values:
			return strings.NewReader(b.Encode()), nil
		case map[string]string:
			values := make(url.Values, len(b))
			for k, v := range b {
				values.Set(k, v)
			}
			return strings.NewReader(values.Encode()), nil
		default:
			return nil, fmt.Errorf("form body must be url.Values or map[string]string, got %T: %w", body, ErrUnsupportedBody)
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// mediaType strips parameters such as charset from a content type.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

// sameOrigin compares scheme and host, port included.
func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
