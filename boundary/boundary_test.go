package boundary

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernestjumbe/zimzimba-mobile/config"
)

func TestRun_Success(t *testing.T) {
	b := New(config.Development)

	err := b.Run(func() error { return nil })

	require.NoError(t, err)
	_, ok := b.Fallback()
	assert.False(t, ok)
}

func TestRun_CapturesError(t *testing.T) {
	var reported []error
	b := New(config.Development, WithOnError(func(err error) { reported = append(reported, err) }))
	failure := errors.New("render failed")

	err := b.Run(func() error { return failure })

	assert.Same(t, failure, err)
	assert.Equal(t, []error{failure}, reported)
	assert.Same(t, failure, b.Err())
}

func TestRun_RecoversPanic(t *testing.T) {
	b := New(config.Development)

	err := b.Run(func() error { panic("nil map write") })

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "nil map write", pe.Value)
	assert.Equal(t, "panic: nil map write", pe.Error())
	assert.NotEmpty(t, pe.Stack)
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	cause := errors.New("boom")
	b := New(config.Production)

	err := b.Run(func() error { panic(cause) })

	assert.ErrorIs(t, err, cause)
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name        string
		env         config.Environment
		wantDetails bool
	}{
		{"development shows details", config.Development, true},
		{"staging hides details", config.Staging, false},
		{"production hides details", config.Production, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.env)
			_ = b.Run(func() error { panic("kaboom") })

			fb, ok := b.Fallback()
			require.True(t, ok)
			assert.Equal(t, Title, fb.Title)
			assert.Equal(t, Message, fb.Message)
			assert.Equal(t, Help, fb.Help)
			assert.Error(t, fb.Err)

			if tt.wantDetails {
				assert.Equal(t, "panic: kaboom", fb.Details)
				assert.NotEmpty(t, fb.Stack)
			} else {
				assert.Empty(t, fb.Details)
				assert.Empty(t, fb.Stack)
			}
		})
	}
}

func TestReset(t *testing.T) {
	resets := 0
	b := New(config.Development, WithOnReset(func() { resets++ }))
	_ = b.Run(func() error { return errors.New("x") })

	b.Reset()

	_, ok := b.Fallback()
	assert.False(t, ok)
	assert.Nil(t, b.Err())
	assert.Equal(t, 1, resets)
}

func TestRetry(t *testing.T) {
	b := New(config.Development)
	attempts := 0
	work := func() error {
		attempts++
		if attempts == 1 {
			return errors.New("first try fails")
		}
		return nil
	}

	require.Error(t, b.Run(work))
	require.NoError(t, b.Retry(work))

	_, ok := b.Fallback()
	assert.False(t, ok)
	assert.Equal(t, 2, attempts)
}

func TestDefaultHandlerLogs(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() error
		level   slog.Level
		want    string
		wantLog bool
	}{
		{"panic at error", func() error { panic("disk full") }, slog.LevelInfo, "error boundary caught a panic", true},
		{"returned error hidden at info", func() error { return errors.New("disk full") }, slog.LevelInfo, "", false},
		{"returned error at debug", func() error { return errors.New("disk full") }, slog.LevelDebug, "error boundary caught an error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.level}))
			b := New(config.Production, WithLogger(logger))

			_ = b.Run(tt.fn)

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "disk full")
		})
	}
}
