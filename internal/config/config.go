// Package config handles the configuration directory, environment and file paths.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "taskman"

	// SessionFile is the persisted session filename.
	SessionFile = "session.json"

	// OAuthClientFile is the OAuth client credentials filename (google backend).
	OAuthClientFile = "oauth_client.json"

	// EnvFile is the optional dotenv file read from the config dir.
	EnvFile = ".env"

	// DefaultAPIURL is the REST service base URL when none is configured.
	DefaultAPIURL = "http://localhost:5000"
)

// Backend names.
const (
	BackendREST   = "rest"
	BackendGoogle = "google"
)

// Environment keys.
const (
	EnvAPIURL   = "TASKMAN_API_URL"
	EnvBackend  = "TASKMAN_BACKEND"
	EnvEmail    = "TASKMAN_EMAIL"
	EnvPassword = "TASKMAN_PASSWORD"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the base URL of the REST task service.
	APIURL string

	// Backend selects the task backend ("rest" or "google").
	Backend string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskman or $HOME/.config/taskman.
// Dotenv files are loaded first (./.env, then <dir>/.env); they never override
// variables already present in the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	if err := loadEnvFiles(EnvFile, filepath.Join(dir, EnvFile)); err != nil {
		return nil, err
	}

	cfg := &Config{
		Dir:     dir,
		APIURL:  DefaultAPIURL,
		Backend: BackendREST,
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	return cfg, cfg.Validate()
}

// Validate checks the backend name and normalizes the API URL.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendREST, BackendGoogle:
	default:
		return errors.New("unknown backend: " + c.Backend)
	}
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return errors.New("api url must not be empty")
	}
	return nil
}

func loadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SessionPath returns the path to the persisted session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}
