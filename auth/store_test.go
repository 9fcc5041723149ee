package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernestjumbe/zimzimba-mobile/kv"
	"github.com/ernestjumbe/zimzimba-mobile/store"
)

var ada = User{ID: "u1", Email: "ada@example.com", Name: "Ada"}

func newTestStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	return NewStore(store.NewKVStorage(backend)), backend
}

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func ptr[T any](v T) *T { return &v }

func TestInitialSession(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, Session{}, s.Get())
	assert.Nil(t, s.User())
	assert.False(t, s.IsAuthenticated())
	assert.True(t, s.HasHydrated())
}

func TestLoginPersists(t *testing.T) {
	s, backend := newTestStore(t)

	s.Login(ada, "tok")

	assert.Equal(t, Session{User: &ada, Token: "tok", IsAuthenticated: true}, s.Get())

	raw, ok, err := backend.Get(context.Background(), StorageName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{
		"state": {
			"user": {"id":"u1","email":"ada@example.com","name":"Ada"},
			"token": "tok",
			"isAuthenticated": true
		},
		"version": 0
	}`, raw)
}

func TestLogoutClearsEverything(t *testing.T) {
	s, backend := newTestStore(t)
	s.Login(ada, "tok")

	s.Logout()

	assert.Equal(t, Session{}, s.Get())

	raw, ok, err := backend.Get(context.Background(), StorageName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":{"user":null,"token":null,"isAuthenticated":false},"version":0}`, raw)
}

func TestSessionRestoredOnStartup(t *testing.T) {
	s, backend := newTestStore(t)
	s.Login(ada, "tok")

	restored := NewStore(store.NewKVStorage(backend))
	assert.Equal(t, s.Get(), restored.Get())
}

func TestSessionFromOriginalDocument(t *testing.T) {
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(context.Background(), StorageName,
		`{"state":{"user":null,"token":null,"isAuthenticated":false},"version":0}`))

	s := NewStore(store.NewKVStorage(backend))
	assert.Equal(t, Session{}, s.Get())
}

func TestSetUser(t *testing.T) {
	t.Run("nil signs out", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.Login(ada, "tok")

		s.SetUser(nil)

		assert.Nil(t, s.User())
		assert.False(t, s.IsAuthenticated())
		assert.Equal(t, "tok", s.Token())
	})

	t.Run("user keeps flag off", func(t *testing.T) {
		s, _ := newTestStore(t)

		s.SetUser(&ada)

		assert.Equal(t, &ada, s.User())
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("user keeps flag on", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.Login(ada, "tok")

		grace := User{ID: "u2", Email: "grace@example.com", Name: "Grace"}
		s.SetUser(&grace)

		assert.Equal(t, &grace, s.User())
		assert.True(t, s.IsAuthenticated())
	})

	t.Run("caller copy is not aliased", func(t *testing.T) {
		s, _ := newTestStore(t)
		u := ada
		s.SetUser(&u)
		u.Name = "changed"

		assert.Equal(t, "Ada", s.User().Name)
	})
}

func TestSetToken(t *testing.T) {
	s, _ := newTestStore(t)

	s.SetToken("abc")
	assert.Equal(t, "abc", s.Token())
	assert.False(t, s.IsAuthenticated())

	s.SetToken("")
	assert.Empty(t, s.Token())
}

func TestUpdateUser(t *testing.T) {
	t.Run("merges fields", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.Login(ada, "tok")

		s.UpdateUser(UserPatch{Name: ptr("Ada Lovelace"), Avatar: ptr("https://img/ada.png")})

		assert.Equal(t, &User{
			ID:     "u1",
			Email:  "ada@example.com",
			Name:   "Ada Lovelace",
			Avatar: "https://img/ada.png",
		}, s.User())
		assert.True(t, s.IsAuthenticated())
	})

	t.Run("no user is a no-op", func(t *testing.T) {
		s, _ := newTestStore(t)

		s.UpdateUser(UserPatch{Name: ptr("ghost")})

		assert.Nil(t, s.User())
	})
}

func TestSnapshotIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	s.Login(ada, "tok")

	snap := s.Get()
	s.UpdateUser(UserPatch{Name: ptr("Changed")})

	assert.Equal(t, "Ada", snap.User.Name)
}

func TestUserReturnsCopy(t *testing.T) {
	s, backend := newTestStore(t)
	s.Login(ada, "tok")

	u := s.User()
	u.Name = "Mallory"

	assert.Equal(t, "Ada", s.User().Name)
	assert.Equal(t, "Ada", s.Get().User.Name)

	reopened := NewStore(store.NewKVStorage(backend))
	assert.Equal(t, "Ada", reopened.User().Name)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no token", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, _, err := s.TokenExpiry()
		assert.ErrorIs(t, err, ErrNoToken)
		assert.True(t, s.TokenExpired(time.Now()))
	})

	t.Run("with exp", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.SetToken(signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}))

		got, ok, err := s.TokenExpiry()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, exp.Equal(got))

		assert.False(t, s.TokenExpired(exp.Add(-time.Minute)))
		assert.True(t, s.TokenExpired(exp))
	})

	t.Run("without exp", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.SetToken(signedToken(t, jwt.RegisteredClaims{Subject: "u1"}))

		_, ok, err := s.TokenExpiry()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, s.TokenExpired(time.Now()))
	})

	t.Run("opaque token", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.SetToken("not-a-jwt")

		_, _, err := s.TokenExpiry()
		assert.Error(t, err)
		assert.True(t, s.TokenExpired(time.Now()))
	})
}
