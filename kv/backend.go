// Package kv defines the key-value backend that persisted stores write to,
// along with the concrete backends the app can run against.
package kv

import "context"

// Backend is a flat string-to-string key-value store.
// There are no transactions and no ordering guarantees across keys.
type Backend interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Contains reports whether key is present.
	Contains(ctx context.Context, key string) (bool, error)

	// Keys returns every key in the backend, in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every key.
	Clear(ctx context.Context) error
}

// Closer is implemented by backends that hold connections or file handles.
type Closer interface {
	Close() error
}

// Close releases b if it holds resources.
func Close(b Backend) error {
	if c, ok := b.(Closer); ok {
		return c.Close()
	}
	return nil
}
