// Package store provides named, in-memory state containers whose every
// mutation is mirrored to a key-value backend and restored on startup.
//
// One Store holds one slice of application state (auth, theme, ...). The
// in-memory value is always the source of truth; the persisted copy is
// written synchronously before each mutation returns, but a failed write
// is only logged. Persistence never blocks or fails a caller.
//
// The persisted document for a store named "theme-storage" looks like:
//
//	{"state":{"mode":"dark"},"version":0}
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// envelope is the persisted document.
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Listener is called after each mutation with the new and previous state.
type Listener[S any] func(state, prev S)

// Store is a persisted state container. S must round-trip through
// encoding/json; snapshots returned by Get must be treated as read-only.
type Store[S any] struct {
	name    string
	storage StateStorage
	opts    options
	initial S

	mu       sync.RWMutex
	state    S
	hydrated bool

	lmu       sync.Mutex
	listeners map[uint64]Listener[S]
	nextID    uint64
}

// New creates the store and hydrates it from storage before returning.
// A missing, unreadable or corrupt persisted entry leaves the store at
// initial; none of those conditions is reported to the caller.
func New[S any](name string, initial S, storage StateStorage, opts ...Option) *Store[S] {
	s := &Store[S]{
		name:      name,
		storage:   storage,
		opts:      applyOptions(opts),
		initial:   initial,
		listeners: make(map[uint64]Listener[S]),
	}

	s.mu.Lock()
	s.state = s.load()
	s.hydrated = true
	s.mu.Unlock()

	return s
}

// Name returns the persistence key.
func (s *Store[S]) Name() string {
	return s.name
}

// HasHydrated reports whether the initial load from storage has finished.
func (s *Store[S]) HasHydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Get returns a deep copy of the current state. Changing it does not
// affect the store.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(s.state)
}

// Set replaces the state with fn(prev). fn receives a deep copy of the
// current state and may modify it freely.
func (s *Store[S]) Set(fn func(prev S) S) {
	s.mu.Lock()
	prev := s.state
	next := fn(s.copyOf(prev))
	s.state = s.copyOf(next)
	s.persist(next)
	s.mu.Unlock()

	s.notify(next, prev)
}

// Replace sets the whole state.
func (s *Store[S]) Replace(state S) {
	s.Set(func(S) S { return state })
}

// Merge shallowly merges partial into the state: each top-level JSON field
// named in partial replaces the corresponding field, the rest are kept. An
// error means partial does not fit the state's shape; the state is then
// left unchanged.
func (s *Store[S]) Merge(partial map[string]any) error {
	patch := make(map[string]json.RawMessage, len(partial))
	for k, v := range partial {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("store %s: encoding field %q: %w", s.name, k, err)
		}
		patch[k] = raw
	}

	s.mu.Lock()
	prev := s.state
	next, err := mergeFields(prev, patch)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store %s: %w", s.name, err)
	}
	s.state = next
	s.persist(next)
	s.mu.Unlock()

	s.notify(next, prev)
	return nil
}

// Reset restores the initial state and persists it.
func (s *Store[S]) Reset() {
	s.Set(func(S) S { return s.copyOf(s.initial) })
}

// Subscribe registers fn to run after every mutation. The returned
// function removes it.
func (s *Store[S]) Subscribe(fn Listener[S]) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// Rehydrate reloads the state from storage, discarding in-memory changes
// that were never persisted.
func (s *Store[S]) Rehydrate() {
	s.mu.Lock()
	prev := s.state
	s.state = s.load()
	next := s.state
	s.mu.Unlock()

	s.notify(next, prev)
}

// ClearStorage deletes the persisted document. The in-memory state is kept.
func (s *Store[S]) ClearStorage() {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.storage.RemoveItem(ctx, s.name); err != nil {
		s.opts.logger.Error("failed to clear persisted state", "store", s.name, "error", err)
	}
}

// load reads the persisted state. Callers hold s.mu.
func (s *Store[S]) load() S {
	logger := s.opts.logger.With("store", s.name)

	ctx, cancel := s.context()
	defer cancel()

	raw, found, err := s.storage.GetItem(ctx, s.name)
	if err != nil {
		logger.Warn("failed to read persisted state, using initial state", "error", err)
		return s.copyOf(s.initial)
	}
	if !found {
		return s.copyOf(s.initial)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.State == nil {
		logger.Warn("discarding corrupt persisted state", "error", err)
		return s.copyOf(s.initial)
	}

	state := env.State
	if env.Version != s.opts.version {
		if s.opts.migrate == nil {
			logger.Warn("discarding persisted state with different version",
				"persistedVersion", env.Version, "version", s.opts.version)
			return s.copyOf(s.initial)
		}
		state, err = s.opts.migrate(env.State, env.Version)
		if err != nil {
			logger.Warn("migration failed, using initial state",
				"persistedVersion", env.Version, "version", s.opts.version, "error", err)
			return s.copyOf(s.initial)
		}
	}

	next := s.copyOf(s.initial)
	if err := json.Unmarshal(state, &next); err != nil {
		logger.Warn("discarding persisted state that does not match the state shape", "error", err)
		return s.copyOf(s.initial)
	}
	return next
}

// persist writes state. Callers hold s.mu so writes land in mutation order.
func (s *Store[S]) persist(state S) {
	rawState, err := json.Marshal(state)
	if err != nil {
		s.opts.logger.Error("failed to encode state", "store", s.name, "error", err)
		return
	}
	raw, err := json.Marshal(envelope{State: rawState, Version: s.opts.version})
	if err != nil {
		s.opts.logger.Error("failed to encode state", "store", s.name, "error", err)
		return
	}

	ctx, cancel := s.context()
	defer cancel()

	if err := s.storage.SetItem(ctx, s.name, string(raw)); err != nil {
		s.opts.logger.Error("failed to persist state", "store", s.name, "error", err)
	}
}

func (s *Store[S]) notify(state, prev S) {
	s.lmu.Lock()
	fns := make([]Listener[S], 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(state, prev)
	}
}

func (s *Store[S]) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opts.timeout)
}

// copyOf deep-copies v through JSON. If v cannot be encoded it is returned
// as is.
func (s *Store[S]) copyOf(v S) S {
	out, err := clone(v)
	if err != nil {
		s.opts.logger.Error("failed to copy state", "store", s.name, "error", err)
		return v
	}
	return out
}

func clone[S any](v S) (S, error) {
	var out S
	raw, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// mergeFields replaces the top-level JSON fields of state named in patch.
func mergeFields[S any](state S, patch map[string]json.RawMessage) (S, error) {
	var out S

	raw, err := json.Marshal(state)
	if err != nil {
		return out, fmt.Errorf("encoding state: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, fmt.Errorf("state is not a JSON object: %w", err)
	}
	for k, v := range patch {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encoding merged state: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("applying partial update: %w", err)
	}
	return out, nil
}
