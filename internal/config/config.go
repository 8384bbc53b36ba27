// Package config loads application configuration from an optional YAML file
// and environment variables. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the validated application configuration.
type Config struct {
	ServerURL       string        `yaml:"server_url"`
	ReviewRequestID int           `yaml:"review_request_id"`
	SiteRoot        string        `yaml:"site_root"`
	BugTrackerURL   string        `yaml:"bug_tracker_url"`
	AjaxSerial      string        `yaml:"ajax_serial"`
	ListenAddr      string        `yaml:"listen_addr"`
	DBPath          string        `yaml:"db_path"`
	RequestTimeout  time.Duration `yaml:"-"`
	ReadOnly        bool          `yaml:"read_only"`

	// RequestTimeoutRaw is the file form of RequestTimeout, e.g. "45s".
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// Defaults returns the configuration used for anything not set elsewhere.
func Defaults() Config {
	return Config{
		SiteRoot:       "/",
		ListenAddr:     "127.0.0.1:8090",
		DBPath:         "rbdraft.db",
		RequestTimeout: 30 * time.Second,
	}
}

// Load builds the configuration. The YAML file named by RBDRAFT_CONFIG, if
// set, supplies base values; these RBDRAFT_ variables override them:
//
//	RBDRAFT_SERVER_URL         Review Board server URL (required)
//	RBDRAFT_REVIEW_REQUEST_ID  review request to operate on (required, > 0)
//	RBDRAFT_SITE_ROOT          site root path (/)
//	RBDRAFT_BUG_TRACKER_URL    bug URL template with %s for the bug ID
//	RBDRAFT_AJAX_SERIAL        cache-busting suffix for fragment requests
//	RBDRAFT_LISTEN_ADDR        local API address (127.0.0.1:8090)
//	RBDRAFT_DB_PATH            page-state database (rbdraft.db)
//	RBDRAFT_REQUEST_TIMEOUT    per-request timeout (30s)
//	RBDRAFT_READ_ONLY          anonymous, read-only session (false)
func Load() (*Config, error) {
	return LoadFile(os.Getenv("RBDRAFT_CONFIG"))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if c.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(c.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("config file request_timeout has invalid duration %q: %w", c.RequestTimeoutRaw, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("RBDRAFT_SERVER_URL"); ok {
		c.ServerURL = v
	}

	if v, ok := os.LookupEnv("RBDRAFT_REVIEW_REQUEST_ID"); ok {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RBDRAFT_REVIEW_REQUEST_ID has invalid value %q: %w", v, err)
		}
		c.ReviewRequestID = id
	}

	if v, ok := os.LookupEnv("RBDRAFT_SITE_ROOT"); ok {
		c.SiteRoot = v
	}
	if v, ok := os.LookupEnv("RBDRAFT_BUG_TRACKER_URL"); ok {
		c.BugTrackerURL = v
	}
	if v, ok := os.LookupEnv("RBDRAFT_AJAX_SERIAL"); ok {
		c.AjaxSerial = v
	}
	if v, ok := os.LookupEnv("RBDRAFT_LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := os.LookupEnv("RBDRAFT_DB_PATH"); ok {
		c.DBPath = v
	}

	if v, ok := os.LookupEnv("RBDRAFT_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RBDRAFT_REQUEST_TIMEOUT has invalid duration %q: %w", v, err)
		}
		c.RequestTimeout = d
	}

	if v, ok := os.LookupEnv("RBDRAFT_READ_ONLY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RBDRAFT_READ_ONLY has invalid value %q: %w", v, err)
		}
		c.ReadOnly = b
	}

	return nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerURL == "" {
		errs = append(errs, errors.New("RBDRAFT_SERVER_URL is required"))
	} else if u, err := url.Parse(c.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("RBDRAFT_SERVER_URL %q must be an absolute URL", c.ServerURL))
	}

	if c.ReviewRequestID <= 0 {
		errs = append(errs, fmt.Errorf("RBDRAFT_REVIEW_REQUEST_ID must be positive, got %d", c.ReviewRequestID))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RBDRAFT_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("RBDRAFT_LISTEN_ADDR must not be empty"))
	}

	return errors.Join(errs...)
}
