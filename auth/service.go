package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ernestjumbe/zimzimba-mobile/apiclient"
	"github.com/ernestjumbe/zimzimba-mobile/query"
)

// ErrNotAuthenticated is returned by calls that need a token when the
// session has none.
var ErrNotAuthenticated = errors.New("not authenticated")

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginResponse is returned by login and register.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Service runs the auth API calls and keeps the session store and query
// cache in step with them.
type Service struct {
	api     *apiclient.Client
	queries *query.Client
	session *Store
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService wires a Service to its collaborators.
func NewService(api *apiclient.Client, queries *query.Client, session *Store, opts ...ServiceOption) *Service {
	s := &Service{
		api:     api,
		queries: queries,
		session: session,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Session returns the session store.
func (s *Service) Session() *Store {
	return s.session
}

// Login posts credentials to /auth/login and signs the session in.
func (s *Service) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	return s.signIn(ctx, "/auth/login", creds)
}

// Register posts to /auth/register and signs the new user in.
func (s *Service) Register(ctx context.Context, reg Registration) (LoginResponse, error) {
	return s.signIn(ctx, "/auth/register", reg)
}

func (s *Service) signIn(ctx context.Context, path string, body any) (LoginResponse, error) {
	resp, err := query.Mutate(ctx, s.queries, func(ctx context.Context) (LoginResponse, error) {
		return apiclient.Post[LoginResponse](ctx, s.api, path, apiclient.WithBody(body))
	})
	if err != nil {
		s.logger.Debug("sign in failed", "path", path, "error", err)
		return LoginResponse{}, err
	}

	s.session.Login(resp.User, resp.Token)
	s.queries.Invalidate(query.AuthUserKey())
	s.logger.Info("signed in", "user_id", resp.User.ID)
	return resp, nil
}

// Logout tells the API to end the session when a token is held, then
// clears the session and every cached query. A failed API call leaves the
// session untouched.
func (s *Service) Logout(ctx context.Context) error {
	if token := s.session.Token(); token != "" {
		_, err := query.Mutate(ctx, s.queries, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.Post(ctx, "/auth/logout", nil, apiclient.WithToken(token))
		})
		if err != nil {
			s.logger.Debug("logout failed", "error", err)
			return err
		}
	}

	s.session.Logout()
	s.queries.Clear()
	s.logger.Info("signed out")
	return nil
}

// CurrentUser fetches /auth/me through the query cache and stores the
// result in the session.
func (s *Service) CurrentUser(ctx context.Context) (User, error) {
	token := s.session.Token()
	if token == "" {
		return User{}, ErrNotAuthenticated
	}

	user, err := query.Fetch(ctx, s.queries, query.AuthUserKey(), func(ctx context.Context) (User, error) {
		return apiclient.Get[User](ctx, s.api, "/auth/me", apiclient.WithToken(token))
	})
	if err != nil {
		return User{}, err
	}

	s.session.SetUser(&user)
	return user, nil
}

// UpdateProfile sends patch to PATCH /users/me and applies the returned
// user locally.
func (s *Service) UpdateProfile(ctx context.Context, patch UserPatch) (User, error) {
	token := s.session.Token()
	if token == "" {
		return User{}, ErrNotAuthenticated
	}

	user, err := query.Mutate(ctx, s.queries, func(ctx context.Context) (User, error) {
		return apiclient.Patch[User](ctx, s.api, "/users/me", apiclient.WithToken(token), apiclient.WithBody(patch))
	})
	if err != nil {
		return User{}, err
	}

	s.session.SetUser(&user)
	s.queries.SetQueryData(query.AuthUserKey(), user)
	return user, nil
}
