package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine            string
	Browser           string
	Channel           string
	Headless          bool
	RemoteURL         string
	Stealth           bool
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	MaxSessions       int64
	HTTPAddr          string
	LogLevel          slog.Level
	Source            string
}

type rawConfig struct {
	Engine            string `toml:"engine"`
	Browser           string `toml:"browser"`
	Channel           string `toml:"channel"`
	Headless          *bool  `toml:"headless"`
	RemoteURL         string `toml:"remote_url"`
	Stealth           *bool  `toml:"stealth"`
	NavigationTimeout string `toml:"navigation_timeout"`
	ActionTimeout     string `toml:"action_timeout"`
	MaxSessions       *int64 `toml:"max_sessions"`
	HTTPAddr          string `toml:"http_addr"`
	LogLevel          string `toml:"log_level"`
}

// Overrides carry command-line values; zero values leave the config alone.
type Overrides struct {
	ConfigPath string
	Engine     string
	Browser    string
	Channel    string
	Headless   *bool
	HTTPAddr   string
	LogLevel   string
}

func Default() Config {
	return Config{
		Engine:            "playwright",
		Browser:           "chromium",
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		ActionTimeout:     5 * time.Second,
		LogLevel:          slog.LevelInfo,
	}
}

// Load layers defaults, the first config file found, PAGESHOT_* environment
// variables and finally overrides.
func Load(overrides Overrides) (Config, error) {
	cfg := Default()

	paths := SearchPaths()
	if overrides.ConfigPath != "" {
		paths = []string{overrides.ConfigPath}
	}
	if err := loadFile(&cfg, paths, overrides.ConfigPath != ""); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func SearchPaths() []string {
	paths := []string{
		"/opt/homebrew/etc/pageshot/config.toml",
		"/usr/local/etc/pageshot/config.toml",
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "pageshot", "config.toml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pageshot", "config.toml"))
	}
	return paths
}

func loadFile(cfg *Config, paths []string, required bool) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if required {
				return fmt.Errorf("config %s: %w", path, err)
			}
			continue
		}
		var raw rawConfig
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		if err := raw.apply(cfg); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Source = path
		return nil
	}
	return nil
}

func (raw rawConfig) apply(cfg *Config) error {
	if raw.Engine != "" {
		cfg.Engine = raw.Engine
	}
	if raw.Browser != "" {
		cfg.Browser = raw.Browser
	}
	if raw.Channel != "" {
		cfg.Channel = raw.Channel
	}
	if raw.Headless != nil {
		cfg.Headless = *raw.Headless
	}
	if raw.RemoteURL != "" {
		cfg.RemoteURL = raw.RemoteURL
	}
	if raw.Stealth != nil {
		cfg.Stealth = *raw.Stealth
	}
	if raw.NavigationTimeout != "" {
		d, err := time.ParseDuration(raw.NavigationTimeout)
		if err != nil {
			return fmt.Errorf("navigation_timeout: %w", err)
		}
		cfg.NavigationTimeout = d
	}
	if raw.ActionTimeout != "" {
		d, err := time.ParseDuration(raw.ActionTimeout)
		if err != nil {
			return fmt.Errorf("action_timeout: %w", err)
		}
		cfg.ActionTimeout = d
	}
	if raw.MaxSessions != nil {
		cfg.MaxSessions = *raw.MaxSessions
	}
	if raw.HTTPAddr != "" {
		cfg.HTTPAddr = raw.HTTPAddr
	}
	if raw.LogLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw.LogLevel)); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	env := func(name string) string {
		return strings.TrimSpace(os.Getenv("PAGESHOT_" + name))
	}
	raw := rawConfig{
		Engine:            env("ENGINE"),
		Browser:           env("BROWSER"),
		Channel:           env("CHANNEL"),
		RemoteURL:         env("REMOTE_URL"),
		NavigationTimeout: env("NAVIGATION_TIMEOUT"),
		ActionTimeout:     env("ACTION_TIMEOUT"),
		HTTPAddr:          env("HTTP_ADDR"),
		LogLevel:          env("LOG_LEVEL"),
	}
	if v := env("HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PAGESHOT_HEADLESS: %w", err)
		}
		raw.Headless = &b
	}
	if v := env("STEALTH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PAGESHOT_STEALTH: %w", err)
		}
		raw.Stealth = &b
	}
	if v := env("MAX_SESSIONS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PAGESHOT_MAX_SESSIONS: %w", err)
		}
		raw.MaxSessions = &n
	}
	if err := raw.apply(cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

func applyOverrides(cfg *Config, o Overrides) error {
	raw := rawConfig{
		Engine:   o.Engine,
		Browser:  o.Browser,
		Channel:  o.Channel,
		Headless: o.Headless,
		HTTPAddr: o.HTTPAddr,
		LogLevel: o.LogLevel,
	}
	return raw.apply(cfg)
}

func (c Config) Validate() error {
	switch c.Engine {
	case "playwright", "rod":
	default:
		return fmt.Errorf("unknown engine: %q", c.Engine)
	}
	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("unknown browser: %q", c.Browser)
	}
	if c.Engine == "rod" && c.Browser != "chromium" {
		return fmt.Errorf("engine rod only drives chromium, got %q", c.Browser)
	}
	if c.NavigationTimeout < 0 || c.ActionTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must not be negative")
	}
	return nil
}
