package apiclient

import "context"

// Get performs a GET and decodes the response into a T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (T, error) {
	var out T
	err := c.Get(ctx, path, &out, opts...)
	return out, err
}

// Post performs a POST and decodes the response into a T.
func Post[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (T, error) {
	var out T
	err := c.Post(ctx, path, &out, opts...)
	return out, err
}

// Put performs a PUT and decodes the response into a T.
func Put[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (T, error) {
	var out T
	err := c.Put(ctx, path, &out, opts...)
	return out, err
}

// Patch performs a PATCH and decodes the response into a T.
func Patch[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (T, error) {
	var out T
	err := c.Patch(ctx, path, &out, opts...)
	return out, err
}

// Delete performs a DELETE and decodes the response into a T.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (T, error) {
	var out T
	err := c.Delete(ctx, path, &out, opts...)
	return out, err
}
