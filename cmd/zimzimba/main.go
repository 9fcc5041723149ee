// Command zimzimba drives the zimzimba data core from the terminal: sign in,
// inspect the persisted stores and run a local development API.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ernestjumbe/zimzimba-mobile/config"
)

// globalFlags override values from the environment.
type globalFlags struct {
	apiURL      string
	env         string
	storage     string
	storagePath string
	verbose     bool
}

// loadConfig reads the environment and applies flag overrides.
func (f *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if f.apiURL != "" {
		cfg.APIURL = f.apiURL
	}
	if f.env != "" {
		env, err := config.ParseEnvironment(f.env)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Env = env
	}
	if f.storage != "" {
		cfg.Storage.Driver = f.storage
		if f.storagePath == "" && os.Getenv("STORAGE_PATH") == "" {
			cfg.Storage.Path = config.DefaultStoragePath(f.storage)
		}
	}
	if f.storagePath != "" {
		cfg.Storage.Path = f.storagePath
	}
	if f.verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg, nil
}

// withApp builds the app for one command run and tears it down after.
func (f *globalFlags) withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := f.loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		return a.guard(cmd.ErrOrStderr(), func() error {
			return fn(cmd, a, args)
		})
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "zimzimba",
		Short:        "zimzimba data core CLI",
		SilenceUsage: true,
		Long: `zimzimba drives the app's data core: the persisted auth and theme
stores, the key-value storage behind them and the REST API client.

Configuration comes from the environment (and a .env file when present):
API_URL, ENV, LOG_LEVEL, STORAGE_DRIVER, STORAGE_PATH and friends.`,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "API base URL (overrides API_URL)")
	pf.StringVar(&flags.env, "env", "", "environment: development, staging or production (overrides ENV)")
	pf.StringVar(&flags.storage, "storage", "", "storage driver: memory, file, sqlite, redis or dynamodb")
	pf.StringVar(&flags.storagePath, "storage-path", "", "path for the file and sqlite drivers")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(flags),
		newLoginCmd(flags),
		newRegisterCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newProfileCmd(flags),
		newThemeCmd(flags),
		newStorageCmd(flags),
		newOnboardingCmd(flags),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
