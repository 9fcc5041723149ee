package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// QueryConfig holds defaults for read queries.
type QueryConfig struct {
	Policy Policy

	// StaleTime is how long fetched data is served without refetching.
	StaleTime time.Duration

	// GCTime is how long an unused entry stays cached.
	GCTime time.Duration
}

// Config is the client-wide default configuration.
type Config struct {
	Queries   QueryConfig
	Mutations Policy
}

// DefaultConfig returns the app defaults: 5 minute stale time, 10 minute
// GC time, DefaultQueryPolicy and DefaultMutationPolicy.
func DefaultConfig() Config {
	return Config{
		Queries: QueryConfig{
			Policy:    DefaultQueryPolicy(),
			StaleTime: 5 * time.Minute,
			GCTime:    10 * time.Minute,
		},
		Mutations: DefaultMutationPolicy(),
	}
}

type entry struct {
	key         Key
	data        any
	updatedAt   time.Time
	lastUsed    time.Time
	invalidated bool
}

// Client caches query results by key.
type Client struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger

	group singleflight.Group

	mu         sync.Mutex
	entries    map[string]*entry
	generation uint64
}

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.cfg = cfg
	}
}

// WithClock sets the time source used for staleness and GC.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates an empty query cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		cfg:     DefaultConfig(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Fetch returns the cached value for key when it is fresh, otherwise runs
// fn under the query retry policy and caches the result. Concurrent
// fetches of the same key share one call of fn.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	hash := key.Hash()

	if v, ok := c.fresh(hash); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	v, err, shared := c.group.Do(hash, func() (any, error) {
		result, err := Do(ctx, c.cfg.Queries.Policy, fn)
		if err != nil {
			return nil, err
		}
		c.store(hash, key, result, gen)
		return result, nil
	})
	if err != nil {
		c.logger.Debug("query failed", "key", hash, "shared", shared, "error", err)
		var zero T
		return zero, err
	}

	typed, _ := v.(T)
	return typed, nil
}

// Mutate runs fn under the mutation retry policy. Mutations are never cached.
func Mutate[T any](ctx context.Context, c *Client, fn func(ctx context.Context) (T, error)) (T, error) {
	return Do(ctx, c.cfg.Mutations, fn)
}

// GetQueryData returns the cached value for key regardless of staleness.
func GetQueryData[T any](c *Client, key Key) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.collect(now)

	e, ok := c.entries[key.Hash()]
	if !ok {
		return zero, false
	}
	typed, ok := e.data.(T)
	if !ok {
		return zero, false
	}
	e.lastUsed = now
	return typed, true
}

// SetQueryData stores v under key as freshly fetched data.
func (c *Client) SetQueryData(key Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key.Hash()] = &entry{key: key, data: v, updatedAt: now, lastUsed: now}
}

// Invalidate marks every entry under prefix as stale; the next Fetch
// refetches it. It returns the number of entries marked.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.invalidated = true
			n++
		}
	}
	c.logger.Debug("queries invalidated", "prefix", prefix.Hash(), "count", n)
	return n
}

// Remove drops every entry under prefix.
func (c *Client) Remove(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for hash, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, hash)
		}
	}
}

// Clear drops every entry. Fetches already in flight do not repopulate the cache.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.generation++
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collect(c.now())
	return len(c.entries)
}

func (c *Client) fresh(hash string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.collect(now)

	e, ok := c.entries[hash]
	if !ok || e.invalidated {
		return nil, false
	}
	if now.Sub(e.updatedAt) >= c.cfg.Queries.StaleTime {
		return nil, false
	}
	e.lastUsed = now
	return e.data, true
}

func (c *Client) store(hash string, key Key, v any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	now := c.now()
	c.entries[hash] = &entry{key: key, data: v, updatedAt: now, lastUsed: now}
}

// collect drops entries unused for longer than GCTime. Callers hold mu.
func (c *Client) collect(now time.Time) {
	if c.cfg.Queries.GCTime <= 0 {
		return
	}
	for hash, e := range c.entries {
		if now.Sub(e.lastUsed) > c.cfg.Queries.GCTime {
			delete(c.entries, hash)
		}
	}
}
