// Package apiclient is a JSON HTTP client for the app's REST API. Every
// failure, whether transport or HTTP status, comes back as *APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against a base URL.
type Client struct {
	baseURL *url.URL
	doer    Doer
	headers http.Header
	logger  *slog.Logger
}

// New creates a client for baseURL, which must be absolute.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		doer:    &http.Client{},
		headers: http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request performs one round trip and returns the parsed JSON body. A body
// that is empty or not valid JSON is returned as {}.
func (c *Client) Request(ctx context.Context, method, path string, opts ...RequestOption) (json.RawMessage, error) {
	data, _, err := c.send(ctx, method, path, applyRequestOptions(opts))
	return data, err
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, out, opts)
}

func (c *Client) Post(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, out, opts)
}

func (c *Client) Put(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPut, path, out, opts)
}

func (c *Client) Patch(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPatch, path, out, opts)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, out, opts)
}

// do sends the request and decodes the body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, out any, opts []RequestOption) error {
	data, status, err := c.send(ctx, method, path, applyRequestOptions(opts))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{
			Message:  fmt.Sprintf("decoding response: %v", err),
			Status:   status,
			Response: data,
			Err:      err,
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, r *request) (json.RawMessage, int, error) {
	target, err := c.buildURL(path, r.params)
	if err != nil {
		return nil, 0, networkError(err)
	}

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, 0, networkError(fmt.Errorf("encoding request body: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, networkError(err)
	}
	req.Header = c.buildHeaders(r)

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			"method", method,
			"path", path,
			"error", err,
			"duration", time.Since(start).String(),
		)
		return nil, 0, networkError(err)
	}
	defer resp.Body.Close()

	data := parseBody(resp.Body)

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &APIError{
			Message:  errorMessage(data, resp.StatusCode),
			Status:   resp.StatusCode,
			Response: data,
		}
	}

	return data, resp.StatusCode, nil
}

// buildURL resolves path against the base URL and appends params.
func (c *Client) buildURL(path string, params map[string]any) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(ref)

	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			s, ok, err := paramString(v)
			if err != nil {
				return "", fmt.Errorf("query parameter %q: %w", k, err)
			}
			if ok {
				q.Add(k, s)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func (c *Client) buildHeaders(r *request) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	for k, vs := range c.headers {
		h[k] = append([]string(nil), vs...)
	}
	for k, vs := range r.headers {
		h[k] = append([]string(nil), vs...)
	}
	if r.token != "" {
		h.Set("Authorization", "Bearer "+r.token)
	}
	return h
}

// paramString converts a query value to its string form. ok is false for
// nil values, which are omitted from the URL.
func paramString(v any) (s string, ok bool, err error) {
	if v == nil {
		return "", false, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false, nil
		}
		v = rv.Elem().Interface()
	}
	s, err = cast.ToStringE(v)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

var emptyObject = json.RawMessage(`{}`)

func parseBody(r io.Reader) json.RawMessage {
	raw, err := io.ReadAll(r)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 || !json.Valid(raw) {
		return emptyObject
	}
	return raw
}

// errorMessage prefers a truthy "message" field in the body.
func errorMessage(data json.RawMessage, status int) string {
	m := gjson.GetBytes(data, "message")
	switch m.Type {
	case gjson.String:
		if m.Str != "" {
			return m.Str
		}
	case gjson.Number:
		if m.Num != 0 {
			return m.Raw
		}
	case gjson.True:
		return "true"
	case gjson.JSON:
		return m.Raw
	}
	return statusMessage(status)
}
