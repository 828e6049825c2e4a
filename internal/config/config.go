// Package config loads the server settings: defaults, then an optional TOML
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/utils"
)

// Duration reads values such as "500ms" or "12h" from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Port              int      `toml:"port"`
	Env               string   `toml:"env"`
	APIBaseURL        string   `toml:"api_base_url"`
	AuthTransport     string   `toml:"auth_transport"`
	LogFile           string   `toml:"log_file"`
	LogLevel          string   `toml:"log_level"`
	PageSize          int      `toml:"page_size"`
	FilterDebounce    Duration `toml:"filter_debounce"`
	RequestTimeout    Duration `toml:"request_timeout"`
	SessionTTL        Duration `toml:"session_ttl"`
	MaxSessions       int      `toml:"max_sessions"`
	DeleteConcurrency int      `toml:"delete_concurrency"`
	AllowedOrigins    []string `toml:"allowed_origins"`
	RateLimit         int      `toml:"rate_limit"`
	LoginRateLimit    int      `toml:"login_rate_limit"`
}

func Default() Config {
	return Config{
		Port:              8080,
		Env:               "development",
		APIBaseURL:        "http://localhost:5000",
		AuthTransport:     remote.TransportBearer,
		LogFile:           "renova.log",
		LogLevel:          "info",
		PageSize:          10,
		FilterDebounce:    Duration{500 * time.Millisecond},
		RequestTimeout:    Duration{15 * time.Second},
		SessionTTL:        Duration{12 * time.Hour},
		MaxSessions:       1024,
		DeleteConcurrency: 4,
		AllowedOrigins:    []string{"http://localhost:3000"},
		RateLimit:         100,
		LoginRateLimit:    10,
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return cfg, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Env = utils.Getenv("ENV", c.Env)
	c.APIBaseURL = utils.Getenv("API_URL", c.APIBaseURL)
	c.AuthTransport = utils.Getenv("AUTH_TRANSPORT", c.AuthTransport)
	c.LogFile = utils.Getenv("LOG_FILE", c.LogFile)
	c.LogLevel = utils.Getenv("LOG_LEVEL", c.LogLevel)
	if v := utils.Getenv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Port},
		{"PAGE_SIZE", &c.PageSize},
		{"MAX_SESSIONS", &c.MaxSessions},
		{"DELETE_CONCURRENCY", &c.DeleteConcurrency},
		{"RATE_LIMIT", &c.RateLimit},
		{"LOGIN_RATE_LIMIT", &c.LoginRateLimit},
	}
	for _, e := range ints {
		v := utils.Getenv(e.key, "")
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"FILTER_DEBOUNCE", &c.FilterDebounce},
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"SESSION_TTL", &c.SessionTTL},
	}
	for _, e := range durations {
		v := utils.Getenv(e.key, "")
		if v == "" {
			continue
		}
		if err := e.dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url %q must be an absolute url", c.APIBaseURL))
	}
	if c.AuthTransport != remote.TransportBearer && c.AuthTransport != remote.TransportCookie {
		errs = append(errs, fmt.Errorf("auth_transport must be %q or %q", remote.TransportBearer, remote.TransportCookie))
	}
	if c.PageSize < 1 {
		errs = append(errs, errors.New("page_size must be positive"))
	}
	if c.FilterDebounce.Duration < 0 {
		errs = append(errs, errors.New("filter_debounce must not be negative"))
	}
	if c.RequestTimeout.Duration <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.SessionTTL.Duration <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.MaxSessions < 1 {
		errs = append(errs, errors.New("max_sessions must be positive"))
	}
	if c.RateLimit < 1 || c.LoginRateLimit < 1 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Level is the slog level named by LogLevel, info when it does not parse.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (c Config) Production() bool { return c.Env == "production" }
