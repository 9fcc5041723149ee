package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
)

// Well-known storage keys.
const (
	KeyAuthToken           = "auth.token"
	KeyUserData            = "user.data"
	KeyTheme               = "theme"
	KeyOnboardingCompleted = "onboarding.completed"
)

// Typed stores strings, numbers, booleans and JSON objects in a Backend.
type Typed struct {
	backend Backend
	logger  *slog.Logger
}

// NewTyped wraps b. A nil logger discards output.
func NewTyped(b Backend, logger *slog.Logger) *Typed {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Typed{backend: b, logger: logger}
}

// Backend returns the wrapped backend.
func (t *Typed) Backend() Backend {
	return t.backend
}

func (t *Typed) SetString(ctx context.Context, key, value string) error {
	return t.backend.Set(ctx, key, value)
}

func (t *Typed) GetString(ctx context.Context, key string) (string, bool, error) {
	return t.backend.Get(ctx, key)
}

func (t *Typed) SetNumber(ctx context.Context, key string, value float64) error {
	return t.backend.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64))
}

// GetNumber returns found=false when the stored value is not a number.
func (t *Typed) GetNumber(ctx context.Context, key string) (float64, bool, error) {
	raw, ok, err := t.backend.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		t.logger.Warn("stored value is not a number", "key", key, "error", err)
		return 0, false, nil
	}
	return n, true, nil
}

func (t *Typed) SetBoolean(ctx context.Context, key string, value bool) error {
	return t.backend.Set(ctx, key, strconv.FormatBool(value))
}

// GetBoolean returns found=false when the stored value is not a boolean.
func (t *Typed) GetBoolean(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := t.backend.Get(ctx, key)
	if err != nil || !ok {
		return false, false, err
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		t.logger.Warn("stored value is not a boolean", "key", key, "error", err)
		return false, false, nil
	}
	return b, true, nil
}

// SetObject stores value as JSON.
func (t *Typed) SetObject(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return t.backend.Set(ctx, key, string(raw))
}

// GetObject decodes the JSON stored under key into out. An empty or
// unparseable value is logged and reported as absent.
func (t *Typed) GetObject(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := t.backend.Get(ctx, key)
	if err != nil || !ok || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		t.logger.Error("failed to parse JSON", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (t *Typed) Delete(ctx context.Context, key string) error {
	return t.backend.Delete(ctx, key)
}

func (t *Typed) Contains(ctx context.Context, key string) (bool, error) {
	return t.backend.Contains(ctx, key)
}

func (t *Typed) Keys(ctx context.Context) ([]string, error) {
	return t.backend.Keys(ctx)
}

func (t *Typed) Clear(ctx context.Context) error {
	return t.backend.Clear(ctx)
}
