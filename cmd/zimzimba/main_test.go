package main

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernestjumbe/zimzimba-mobile/config"
	"github.com/ernestjumbe/zimzimba-mobile/internal/devserver"
	"github.com/ernestjumbe/zimzimba-mobile/kv"
)

// cli runs commands against one file-backed storage, like separate
// invocations of the binary would.
type cli struct {
	t       *testing.T
	storage string
	apiURL  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("STORAGE_PATH", "")
	return &cli{t: t, storage: filepath.Join(t.TempDir(), "storage.json"), apiURL: "http://127.0.0.1:1"}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(append([]string{"--storage", "file", "--storage-path", c.storage, "--api-url", c.apiURL}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "zimzimba %s", strings.Join(args, " "))
	return out
}

func TestThemeCommands(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, "system (effective: light)\n", c.mustRun("theme"))
	assert.Equal(t, "system (effective: dark)\n", c.mustRun("theme", "--system-dark"))

	assert.Equal(t, "dark (effective: dark)\n", c.mustRun("theme", "set", "dark"))
	assert.Equal(t, "dark (effective: dark)\n", c.mustRun("theme"))

	assert.Equal(t, "light\n", c.mustRun("theme", "toggle"))
	assert.Equal(t, "light (effective: light)\n", c.mustRun("theme"))

	_, err := c.run("theme", "set", "sepia")
	assert.Error(t, err)
}

func TestOnboardingCommands(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, "not completed\n", c.mustRun("onboarding"))
	c.mustRun("onboarding", "complete")
	assert.Equal(t, "completed\n", c.mustRun("onboarding"))
	c.mustRun("onboarding", "reset")
	assert.Equal(t, "not completed\n", c.mustRun("onboarding"))
}

func TestStorageCommands(t *testing.T) {
	c := newCLI(t)
	c.mustRun("theme", "set", "dark")
	c.mustRun("onboarding", "complete")

	assert.Equal(t, "onboarding.completed\ntheme-storage\n", c.mustRun("storage", "keys"))
	assert.JSONEq(t, `{"state":{"mode":"dark"},"version":0}`, c.mustRun("storage", "get", "theme-storage"))

	_, err := c.run("storage", "get", "missing")
	assert.Error(t, err)

	_, err = c.run("storage", "clear")
	assert.Error(t, err, "clear needs --yes")

	c.mustRun("storage", "clear", "--yes")
	assert.Empty(t, c.mustRun("storage", "keys"))
}

func TestAuthCommands(t *testing.T) {
	srv := httptest.NewServer(devserver.New(config.Server{
		JWTSecret:       "cli-test-secret",
		TokenTTL:        time.Hour,
		CORSAllowOrigin: "*",
	}, kv.NewMemory(), slog.New(slog.DiscardHandler)))
	t.Cleanup(srv.Close)

	c := newCLI(t)
	c.apiURL = srv.URL

	assert.Equal(t, "Not signed in\n", c.mustRun("whoami"))

	out := c.mustRun("register", "--email", "ada@example.com", "--password", "correct-horse", "--name", "Ada")
	assert.Equal(t, "Registered and signed in as Ada <ada@example.com>\n", out)

	out = c.mustRun("whoami")
	assert.Contains(t, out, "Ada <ada@example.com>")
	assert.Contains(t, out, "token: expires")

	c.mustRun("profile", "--name", "Ada Lovelace")
	assert.Contains(t, c.mustRun("whoami", "--offline"), "Ada Lovelace <ada@example.com>")

	assert.Equal(t, "Signed out\n", c.mustRun("logout"))
	assert.Equal(t, "Not signed in\n", c.mustRun("whoami"))

	_, err := c.run("login", "--email", "ada@example.com", "--password", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")

	t.Setenv(passwordEnv, "correct-horse")
	assert.Equal(t, "Signed in as Ada Lovelace <ada@example.com>\n", c.mustRun("login", "--email", "ada@example.com"))
}

func TestAPIUnreachable(t *testing.T) {
	c := newCLI(t)
	t.Setenv(passwordEnv, "whatever-pass")

	_, err := c.run("login", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not reach the API")
}

func TestInvalidEnvFlag(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("--env", "qa", "theme")
	assert.Error(t, err)
}
