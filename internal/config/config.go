// Package config provides centralized configuration for the reply
// verification suite. It loads settings from environment variables (with an
// optional .env file), validates required fields, and provides sensible
// defaults.
//
// Credentials are only ever held in memory for the login path; nothing in
// this package persists them.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/replycheck/replycheck/internal/errs"
)

const (
	defaultStateFile    = "state.json"
	defaultCasesFile    = "testdata/cases.json"
	defaultLoginTimeout = 30 * time.Second
	defaultReplyTimeout = 15 * time.Second
	// Consent dismissal is best-effort; keep its budget short.
	defaultConsentTimeout = 5 * time.Second
)

// Config holds all suite configuration.
type Config struct {
	// TargetURL is the messaging page under test.
	TargetURL string
	// LoginURL is where the login form lives. Defaults to the origin of
	// TargetURL, matching sites that host login at the root.
	LoginURL string

	// Credentials for the login path. Never persisted.
	Email    string
	Password string

	// StateFile is the durable browser storage-state record. It must stay
	// out of version control.
	StateFile string
	// CasesFile is the JSON test-data source.
	CasesFile string

	LoginTimeout   time.Duration
	ReplyTimeout   time.Duration
	ConsentTimeout time.Duration

	// Headless controls browser visibility. HEADLESS=false shows the
	// browser for debugging.
	Headless bool
}

// Load reads configuration from a .env file (if present) and the process
// environment. Missing required fields produce an invalid_config error that
// names .env.example so the fix is obvious.
func Load() (*Config, error) {
	// A missing .env is fine; the process environment may carry everything.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		TargetURL:      strings.TrimSpace(os.Getenv("REPLYCHECK_TARGET_URL")),
		LoginURL:       strings.TrimSpace(os.Getenv("REPLYCHECK_LOGIN_URL")),
		Email:          strings.TrimSpace(os.Getenv("REPLYCHECK_EMAIL")),
		Password:       os.Getenv("REPLYCHECK_PASSWORD"),
		StateFile:      getEnvOrDefault("REPLYCHECK_STATE_FILE", defaultStateFile),
		CasesFile:      getEnvOrDefault("REPLYCHECK_CASES_FILE", defaultCasesFile),
		LoginTimeout:   parseDurationOrDefault("REPLYCHECK_LOGIN_TIMEOUT", defaultLoginTimeout),
		ReplyTimeout:   parseDurationOrDefault("REPLYCHECK_REPLY_TIMEOUT", defaultReplyTimeout),
		ConsentTimeout: parseDurationOrDefault("REPLYCHECK_CONSENT_TIMEOUT", defaultConsentTimeout),
		Headless:       os.Getenv("HEADLESS") != "false",
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.LoginURL == "" {
		origin, err := originOf(cfg.TargetURL)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidConfig,
				fmt.Sprintf("REPLYCHECK_TARGET_URL is not a valid URL: %q", cfg.TargetURL), err)
		}
		cfg.LoginURL = origin
	}

	return cfg, nil
}

// Validate checks required fields and aggregates everything that is missing
// into a single actionable message.
func (c *Config) Validate() error {
	var missing []string
	if c.TargetURL == "" {
		missing = append(missing, "REPLYCHECK_TARGET_URL")
	}
	if c.Email == "" {
		missing = append(missing, "REPLYCHECK_EMAIL")
	}
	if c.Password == "" {
		missing = append(missing, "REPLYCHECK_PASSWORD")
	}
	if len(missing) == 0 {
		return nil
	}
	return errs.New(errs.InvalidConfig, fmt.Sprintf(
		"missing required configuration: %s (copy .env.example to .env and fill in your values)",
		strings.Join(missing, ", ")))
}

func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
