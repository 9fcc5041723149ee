package apiclient

import (
	"log/slog"
	"net/http"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. Defaults to a plain *http.Client with
// no timeout; bound requests through the context instead.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithDefaultHeader adds a header sent with every request.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

type request struct {
	token   string
	params  map[string]any
	headers http.Header
	body    any
}

// RequestOption configures a single request.
type RequestOption func(*request)

// WithToken sends "Authorization: Bearer <token>". Empty tokens are ignored.
func WithToken(token string) RequestOption {
	return func(r *request) {
		r.token = token
	}
}

// WithParams adds query parameters. Values may be strings, numbers or
// booleans; nil values and nil pointers are left out of the URL.
func WithParams(params map[string]any) RequestOption {
	return func(r *request) {
		for k, v := range params {
			r.params[k] = v
		}
	}
}

// WithParam adds one query parameter.
func WithParam(key string, value any) RequestOption {
	return func(r *request) {
		r.params[key] = value
	}
}

// WithHeader adds a header to this request, overriding client defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *request) {
		r.headers.Set(key, value)
	}
}

// WithBody sends v encoded as JSON. A nil body sends nothing.
func WithBody(v any) RequestOption {
	return func(r *request) {
		r.body = v
	}
}

func applyRequestOptions(opts []RequestOption) *request {
	r := &request{
		params:  map[string]any{},
		headers: http.Header{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
