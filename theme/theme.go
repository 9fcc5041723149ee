// Package theme holds the persisted theme preference.
package theme

import (
	"errors"
	"fmt"

	"github.com/ernestjumbe/zimzimba-mobile/store"
)

// StorageName is the persistence key of the theme store.
const StorageName = "theme-storage"

// Mode is the user's theme choice.
type Mode string

const (
	Light  Mode = "light"
	Dark   Mode = "dark"
	System Mode = "system"
)

// ErrInvalidMode is returned by SetTheme for unknown modes.
var ErrInvalidMode = errors.New("invalid theme mode")

// ParseMode validates s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Light, Dark, System:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q: must be light, dark or system", ErrInvalidMode, s)
	}
}

// State is the persisted theme state.
type State struct {
	Mode Mode `json:"mode"`
}

// Store is the theme store.
type Store struct {
	*store.Store[State]
}

// NewStore creates the theme store, defaulting to the system theme.
func NewStore(storage store.StateStorage, opts ...store.Option) *Store {
	return &Store{Store: store.New(StorageName, State{Mode: System}, storage, opts...)}
}

// Mode returns the current mode.
func (s *Store) Mode() Mode {
	return s.Get().Mode
}

// SetTheme sets the mode.
func (s *Store) SetTheme(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	s.Set(func(st State) State {
		st.Mode = mode
		return st
	})
	return nil
}

// Toggle switches light to dark and anything else to light.
func (s *Store) Toggle() Mode {
	var next Mode
	s.Set(func(st State) State {
		if st.Mode == Light {
			st.Mode = Dark
		} else {
			st.Mode = Light
		}
		next = st.Mode
		return st
	})
	return next
}

// Resolve returns the effective light or dark mode, following the system
// setting when the mode is System.
func (s *Store) Resolve(systemDark bool) Mode {
	mode := s.Mode()
	if mode != System {
		return mode
	}
	if systemDark {
		return Dark
	}
	return Light
}
