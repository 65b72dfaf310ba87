package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the user's own config files and environment out of Load.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{
		"ENGINE", "BROWSER", "CHANNEL", "REMOTE_URL", "NAVIGATION_TIMEOUT", "ACTION_TIMEOUT",
		"HTTP_ADDR", "LOG_LEVEL", "HEADLESS", "STEALTH", "MAX_SESSIONS",
	} {
		t.Setenv("PAGESHOT_"+name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "playwright", cfg.Engine)
	assert.Equal(t, "chromium", cfg.Browser)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
engine = "rod"
headless = false
stealth = true
navigation_timeout = "10s"
action_timeout = "2500ms"
max_sessions = 4
http_addr = "127.0.0.1:7777"
log_level = "debug"
`)
	cfg, err := Load(Overrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "rod", cfg.Engine)
	assert.False(t, cfg.Headless)
	assert.True(t, cfg.Stealth)
	assert.Equal(t, 10*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 2500*time.Millisecond, cfg.ActionTimeout)
	assert.Equal(t, int64(4), cfg.MaxSessions)
	assert.Equal(t, "127.0.0.1:7777", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadSearchPath(t *testing.T) {
	isolate(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "pageshot")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`channel = "chrome"`), 0o644))

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	if cfg.Source == filepath.Join(dir, "config.toml") {
		assert.Equal(t, "chrome", cfg.Channel)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(Overrides{ConfigPath: filepath.Join(t.TempDir(), "nope.toml")})
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `action_timeout = "1s"`)
	t.Setenv("PAGESHOT_ACTION_TIMEOUT", "3s")
	t.Setenv("PAGESHOT_HEADLESS", "false")
	t.Setenv("PAGESHOT_MAX_SESSIONS", "2")

	cfg, err := Load(Overrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ActionTimeout)
	assert.False(t, cfg.Headless)
	assert.Equal(t, int64(2), cfg.MaxSessions)
}

func TestOverridesWin(t *testing.T) {
	isolate(t)
	t.Setenv("PAGESHOT_BROWSER", "firefox")
	headless := false
	cfg, err := Load(Overrides{Browser: "webkit", Headless: &headless, LogLevel: "warn"})
	require.NoError(t, err)
	assert.Equal(t, "webkit", cfg.Browser)
	assert.False(t, cfg.Headless)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]func(t *testing.T) Overrides{
		"bad env bool": func(t *testing.T) Overrides {
			t.Setenv("PAGESHOT_STEALTH", "maybe")
			return Overrides{}
		},
		"bad duration": func(t *testing.T) Overrides {
			return Overrides{ConfigPath: writeConfig(t, `navigation_timeout = "soon"`)}
		},
		"bad toml": func(t *testing.T) Overrides {
			return Overrides{ConfigPath: writeConfig(t, `engine = `)}
		},
		"unknown engine": func(t *testing.T) Overrides {
			return Overrides{Engine: "selenium"}
		},
		"rod with firefox": func(t *testing.T) Overrides {
			return Overrides{Engine: "rod", Browser: "firefox"}
		},
		"bad log level": func(t *testing.T) Overrides {
			return Overrides{LogLevel: "loud"}
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			_, err := Load(setup(t))
			assert.Error(t, err)
		})
	}
}

func TestValidateNegatives(t *testing.T) {
	cfg := Default()
	cfg.ActionTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxSessions = -1
	assert.Error(t, cfg.Validate())
}
