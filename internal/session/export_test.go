package session

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// WithHTTPClient exports withHTTPClient for transport failure tests.
var WithHTTPClient = withHTTPClient

// EncodeBody exports encodeBody for unit testing.
var EncodeBody = encodeBody

// MaxResponseSize exports maxResponseSize for body limit tests.
const MaxResponseSize = maxResponseSize
