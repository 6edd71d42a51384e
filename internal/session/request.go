package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/alnah/go-eventadmin/internal/apierr"
)

// HeaderRequestID carries the correlation ID set by RequestID.
const HeaderRequestID = "X-Request-ID"

// requestOptions holds the per-call overrides.
type requestOptions struct {
	header      http.Header
	query       url.Values
	contentType string
}

// RequestOption configures a single call.
type RequestOption func(*requestOptions)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.header.Add(key, value)
	}
}

// WithQuery adds a query parameter to the request URL.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.query.Add(key, value)
	}
}

// WithContentType overrides the default content type for this call.
// Use ContentTypeForm for form-url-encoded bodies.
func WithContentType(contentType string) RequestOption {
	return func(o *requestOptions) {
		if contentType != "" {
			o.contentType = contentType
		}
	}
}

// Response is a successful exchange. Data holds the body exactly as
// received.
type Response struct {
	StatusCode int
	Header     http.Header
	Data       []byte
}

// Decode unmarshals Data as JSON into v. A malformed payload is reported
// as an *apierr.Error of ClassUnknown.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return &apierr.Error{
			Message: fmt.Sprintf("invalid response payload: %v", err),
			Class:   apierr.ClassUnknown,
			Status:  r.StatusCode,
			Cause:   err,
		}
	}
	return nil
}

// RequestID returns an interceptor that tags each request with a random
// X-Request-ID, unless the caller already set one.
func RequestID() RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		if req.Header.Get(HeaderRequestID) == "" {
			req.Header.Set(HeaderRequestID, uuid.NewString())
		}
		return nil
	}
}
