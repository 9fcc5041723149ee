// Package boundary catches failures from a unit of work and turns them into
// a user-facing fallback that can be dismissed and retried.
package boundary

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/ernestjumbe/zimzimba-mobile/config"
)

// Generic text shown when a failure is caught.
const (
	Title   = "Something went wrong"
	Message = "We encountered an unexpected error. Don't worry, your data is safe."
	Help    = "If the problem persists, please contact support or try restarting the app."
)

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Fallback describes what to show after a failure. Details and Stack are
// filled only in development.
type Fallback struct {
	Title   string
	Message string
	Help    string
	Details string
	Stack   string
	Err     error
}

// Boundary captures the first failure of the work it runs.
type Boundary struct {
	env     config.Environment
	logger  *slog.Logger
	onError func(error)
	onReset func()

	mu  sync.Mutex
	err error
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithLogger sets the logger. Panics are logged at error level, returned
// errors at debug.
func WithLogger(l *slog.Logger) Option {
	return func(b *Boundary) {
		b.logger = l
	}
}

// WithOnError replaces the default handler, which only logs, with fn.
func WithOnError(fn func(error)) Option {
	return func(b *Boundary) {
		b.onError = fn
	}
}

// WithOnReset registers a hook run by Reset.
func WithOnReset(fn func()) Option {
	return func(b *Boundary) {
		b.onReset = fn
	}
}

// New creates a boundary for env.
func New(env config.Environment, opts ...Option) *Boundary {
	b := &Boundary{env: env}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	if b.onError == nil {
		b.onError = b.logError
	}
	return b
}

// Run calls fn and captures a returned error or a panic. The captured
// failure is returned and stays available through Fallback until Reset.
func (b *Boundary) Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			b.capture(err)
		}
	}()
	return fn()
}

// Err returns the captured failure, if any.
func (b *Boundary) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Fallback returns the fallback for the captured failure. ok is false when
// nothing has failed.
func (b *Boundary) Fallback() (Fallback, bool) {
	b.mu.Lock()
	err := b.err
	b.mu.Unlock()

	if err == nil {
		return Fallback{}, false
	}

	fb := Fallback{Title: Title, Message: Message, Help: Help, Err: err}
	if b.env == config.Development {
		fb.Details = err.Error()
		if pe, ok := err.(*PanicError); ok {
			fb.Stack = string(pe.Stack)
		}
	}
	return fb, true
}

// Reset clears the captured failure so the work can be retried.
func (b *Boundary) Reset() {
	b.mu.Lock()
	b.err = nil
	b.mu.Unlock()

	if b.onReset != nil {
		b.onReset()
	}
	if b.env == config.Development {
		b.logger.Debug("error boundary reset")
	}
}

// Retry resets the boundary and runs fn again.
func (b *Boundary) Retry(fn func() error) error {
	b.Reset()
	return b.Run(fn)
}

func (b *Boundary) capture(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()

	b.onError(err)
}

// logError logs panics at error level. Returned errors are already handled
// by the caller and only logged at debug.
func (b *Boundary) logError(err error) {
	pe, ok := err.(*PanicError)
	if !ok {
		b.logger.Debug("error boundary caught an error", "error", err)
		return
	}
	attrs := []any{"error", err}
	if b.env == config.Development {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	b.logger.Error("error boundary caught a panic", attrs...)
}
