package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ernestjumbe/zimzimba-mobile/internal/devserver"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development API",
		Long: `Serves /auth/register, /auth/login, /auth/logout, /auth/me and
/users/me backed by the configured storage driver. Requires JWT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			if port != "" {
				a.cfg.Server.Port = port
			}
			return serve(cmd.Context(), a)
		}),
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides SERVER_PORT)")
	return cmd
}

// serve runs the dev server until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, a *app) error {
	logger := a.logger
	router := devserver.New(a.cfg.Server, a.backend, logger)
	srv := devserver.NewHTTPServer(a.cfg.Server.Port, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", a.cfg.Server.Port, "storage", a.cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
