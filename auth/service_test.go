package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernestjumbe/zimzimba-mobile/apiclient"
	"github.com/ernestjumbe/zimzimba-mobile/query"
)

// fakeAPI is a minimal auth API.
type fakeAPI struct {
	meCalls     atomic.Int32
	logoutCalls atomic.Int32
	logoutAuth  atomic.Value
	failLogout  bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad body"})
			return
		}
		if creds.Password != "correct-horse" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid email or password", "code": 401})
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{User: User{ID: "u1", Email: creds.Email, Name: "Ada"}, Token: "tok-1"})
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var reg Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad body"})
			return
		}
		if reg.Email == "taken@example.com" {
			writeJSON(w, http.StatusConflict, map[string]any{"message": "email already registered", "code": 409})
			return
		}
		writeJSON(w, http.StatusCreated, LoginResponse{User: User{ID: "u2", Email: reg.Email, Name: reg.Name}, Token: "tok-2"})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		f.logoutAuth.Store(r.Header.Get("Authorization"))
		if f.failLogout {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token revoked"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, User{ID: "u1", Email: "ada@example.com", Name: "Ada"})
	})

	mux.HandleFunc("PATCH /users/me", func(w http.ResponseWriter, r *http.Request) {
		var patch UserPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad body"})
			return
		}
		u := patch.apply(User{ID: "u1", Email: "ada@example.com", Name: "Ada"})
		writeJSON(w, http.StatusOK, u)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type fixture struct {
	api     *fakeAPI
	svc     *Service
	session *Store
	queries *query.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL)
	require.NoError(t, err)

	queries := query.NewClient(query.WithConfig(query.Config{
		Queries:   query.QueryConfig{Policy: query.NoRetry(), StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute},
		Mutations: query.NoRetry(),
	}))
	session, _ := newTestStore(t)

	return &fixture{
		api:     api,
		svc:     NewService(client, queries, session),
		session: session,
		queries: queries,
	}
}

func TestServiceLogin(t *testing.T) {
	f := newFixture(t)
	f.queries.SetQueryData(query.AuthUserKey(), User{ID: "stale"})

	resp, err := f.svc.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, Session{User: &resp.User, Token: "tok-1", IsAuthenticated: true}, f.session.Get())

	// The cached user was invalidated, so the next read goes to the API.
	_, err = f.svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.api.meCalls.Load())
}

func TestServiceLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "wrong"})

	apiErr, ok := apiclient.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid email or password", apiErr.Message)
	assert.Equal(t, Session{}, f.session.Get())
}

func TestServiceRegister(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(context.Background(), Registration{Email: "grace@example.com", Password: "correct-horse", Name: "Grace"})
	require.NoError(t, err)

	assert.Equal(t, User{ID: "u2", Email: "grace@example.com", Name: "Grace"}, resp.User)
	assert.True(t, f.session.IsAuthenticated())
	assert.Equal(t, "tok-2", f.session.Token())
}

func TestServiceRegister_Conflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), Registration{Email: "taken@example.com", Password: "correct-horse", Name: "X"})

	apiErr, ok := apiclient.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.False(t, f.session.IsAuthenticated())
}

func TestServiceLogout(t *testing.T) {
	f := newFixture(t)
	f.session.Login(ada, "tok-1")
	f.queries.SetQueryData(query.AuthUserKey(), ada)
	f.queries.SetQueryData(query.UserDetailKey("u1"), ada)

	require.NoError(t, f.svc.Logout(context.Background()))

	assert.EqualValues(t, 1, f.api.logoutCalls.Load())
	assert.Equal(t, "Bearer tok-1", f.api.logoutAuth.Load())
	assert.Equal(t, Session{}, f.session.Get())
	assert.Equal(t, 0, f.queries.Len())
}

func TestServiceLogout_WithoutToken(t *testing.T) {
	f := newFixture(t)
	f.queries.SetQueryData(query.AuthUserKey(), ada)

	require.NoError(t, f.svc.Logout(context.Background()))

	assert.EqualValues(t, 0, f.api.logoutCalls.Load())
	assert.Equal(t, 0, f.queries.Len())
}

func TestServiceLogout_APIFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.api.failLogout = true
	f.session.Login(ada, "tok-1")

	err := f.svc.Logout(context.Background())

	require.Error(t, err)
	assert.True(t, f.session.IsAuthenticated())
}

func TestServiceCurrentUser(t *testing.T) {
	f := newFixture(t)
	f.session.SetToken("tok-1")

	u, err := f.svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, &u, f.session.User())

	_, err = f.svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.api.meCalls.Load(), "second call is served from cache")
}

func TestServiceCurrentUser_NotAuthenticated(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.EqualValues(t, 0, f.api.meCalls.Load())
}

func TestServiceUpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.session.Login(ada, "tok-1")

	u, err := f.svc.UpdateProfile(context.Background(), UserPatch{Name: ptr("Ada Lovelace")})
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Equal(t, "Ada Lovelace", f.session.User().Name)

	cached, ok := query.GetQueryData[User](f.queries, query.AuthUserKey())
	require.True(t, ok)
	assert.Equal(t, u, cached)
}
