// Package auth holds the persisted session and the service that talks to
// the auth endpoints.
package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ernestjumbe/zimzimba-mobile/store"
)

// StorageName is the persistence key of the session store.
const StorageName = "auth-storage"

// User is the signed-in user as returned by the API.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// UserPatch is a partial user update. Nil fields are left unchanged.
type UserPatch struct {
	Email  *string `json:"email,omitempty"`
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

func (p UserPatch) apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	return u
}

// Session is the persisted auth state. An empty Token means none and is
// stored as null.
type Session struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	doc := struct {
		User            *User   `json:"user"`
		Token           *string `json:"token"`
		IsAuthenticated bool    `json:"isAuthenticated"`
	}{User: s.User, IsAuthenticated: s.IsAuthenticated}
	if s.Token != "" {
		doc.Token = &s.Token
	}
	return json.Marshal(doc)
}

// ErrNoToken is returned by TokenExpiry when the session has no token.
var ErrNoToken = errors.New("no token")

// Store is the session store.
type Store struct {
	*store.Store[Session]
}

// NewStore creates the session store, signed out by default.
func NewStore(storage store.StateStorage, opts ...store.Option) *Store {
	return &Store{Store: store.New(StorageName, Session{}, storage, opts...)}
}

// Login records the user and token and marks the session authenticated in
// a single mutation.
func (s *Store) Login(user User, token string) {
	s.Replace(Session{User: &user, Token: token, IsAuthenticated: true})
}

// Logout clears the user, token and authenticated flag together.
func (s *Store) Logout() {
	s.Replace(Session{})
}

// SetUser replaces the stored user. A nil user signs the session out; a
// non-nil user leaves the authenticated flag as it is.
func (s *Store) SetUser(user *User) {
	s.Set(func(st Session) Session {
		if user == nil {
			st.User = nil
			st.IsAuthenticated = false
			return st
		}
		u := *user
		st.User = &u
		return st
	})
}

// SetToken replaces the token. The empty string clears it.
func (s *Store) SetToken(token string) {
	s.Set(func(st Session) Session {
		st.Token = token
		return st
	})
}

// UpdateUser applies patch to the stored user. It does nothing when no
// user is signed in.
func (s *Store) UpdateUser(patch UserPatch) {
	s.Set(func(st Session) Session {
		if st.User == nil {
			return st
		}
		u := patch.apply(*st.User)
		st.User = &u
		return st
	})
}

// User returns a copy of the stored user, or nil.
func (s *Store) User() *User {
	return s.Get().User
}

// Token returns the stored token.
func (s *Store) Token() string {
	return s.Get().Token
}

// IsAuthenticated reports the session flag.
func (s *Store) IsAuthenticated() bool {
	return s.Get().IsAuthenticated
}

// TokenExpiry reads the exp claim of the stored token without verifying
// its signature. ok is false when the token carries no exp.
func (s *Store) TokenExpiry() (exp time.Time, ok bool, err error) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false, ErrNoToken
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}

// TokenExpired reports whether the stored token has expired at now. A
// missing or unreadable token counts as expired; a token without exp does not.
func (s *Store) TokenExpired(now time.Time) bool {
	exp, ok, err := s.TokenExpiry()
	if err != nil {
		return true
	}
	if !ok {
		return false
	}
	return !now.Before(exp)
}
