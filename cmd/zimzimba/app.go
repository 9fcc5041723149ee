package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ernestjumbe/zimzimba-mobile/apiclient"
	"github.com/ernestjumbe/zimzimba-mobile/auth"
	"github.com/ernestjumbe/zimzimba-mobile/boundary"
	"github.com/ernestjumbe/zimzimba-mobile/config"
	"github.com/ernestjumbe/zimzimba-mobile/kv"
	"github.com/ernestjumbe/zimzimba-mobile/query"
	"github.com/ernestjumbe/zimzimba-mobile/store"
	"github.com/ernestjumbe/zimzimba-mobile/theme"
)

// app owns one instance of every store and client for a single CLI run.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	backend kv.Backend
	typed   *kv.Typed

	session *auth.Store
	theme   *theme.Store

	api     *apiclient.Client
	queries *query.Client
	auth    *auth.Service

	boundary *boundary.Boundary
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger := cfg.NewLogger(logOut)

	backend, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}

	api, err := apiclient.New(cfg.APIURL,
		apiclient.WithLogger(logger),
		apiclient.WithDefaultHeader("Accept", "application/json"),
	)
	if err != nil {
		kv.Close(backend)
		return nil, err
	}

	storage := store.NewKVStorage(backend)
	storeOpts := []store.Option{store.WithLogger(logger)}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		typed:    kv.NewTyped(backend, logger),
		session:  auth.NewStore(storage, storeOpts...),
		theme:    theme.NewStore(storage, storeOpts...),
		api:      api,
		queries:  query.NewClient(query.WithLogger(logger)),
		boundary: boundary.New(cfg.Env, boundary.WithLogger(logger)),
	}
	a.auth = auth.NewService(a.api, a.queries, a.session, auth.WithLogger(logger))

	logger.Debug("app ready",
		"env", cfg.Env,
		"api_url", cfg.APIURL,
		"storage", cfg.Storage.Driver,
	)
	return a, nil
}

func (a *app) Close() error {
	return kv.Close(a.backend)
}

// guard runs fn inside the error boundary. A recovered panic is reported
// through the fallback text instead of a stack trace, except in development.
func (a *app) guard(w io.Writer, fn func() error) error {
	err := a.boundary.Run(fn)
	if err == nil {
		return nil
	}

	var pe *boundary.PanicError
	if !errors.As(err, &pe) {
		return err
	}

	fb, _ := a.boundary.Fallback()
	fmt.Fprintln(w, fb.Title)
	fmt.Fprintln(w, fb.Message)
	if fb.Details != "" {
		fmt.Fprintf(w, "\nError details:\n%s\n", fb.Details)
	}
	if fb.Stack != "" {
		fmt.Fprintln(w, fb.Stack)
	}
	fmt.Fprintln(w, fb.Help)
	return fmt.Errorf("command failed unexpectedly")
}
