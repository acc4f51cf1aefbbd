// Package config loads keydash settings from config.yaml, a .env file and
// KEYDASH_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendHTTP  = "http"
	BackendLocal = "local"

	appDirName = "keydash"
)

type Config struct {
	Backend        string `yaml:"backend"`
	IdentityURL    string `yaml:"identity_url,omitempty"`
	OrganizationID string `yaml:"organization_id,omitempty"`
	APIToken       string `yaml:"api_token,omitempty"`
	SessionToken   string `yaml:"session_token,omitempty"`
	SessionSecret  string `yaml:"session_secret,omitempty"`
	KeyServiceURL  string `yaml:"key_service_url,omitempty"`
	DatabasePath   string `yaml:"database_path,omitempty"`
	LocalUserID    string `yaml:"local_user_id,omitempty"`
	PageSize       int    `yaml:"page_size,omitempty"`
	ToastSeconds   int    `yaml:"toast_seconds,omitempty"`
	Theme          string `yaml:"theme,omitempty"`
	LogEnv         string `yaml:"log_env,omitempty"`
	LogPath        string `yaml:"log_path,omitempty"`
}

// Dir is the per-user config directory. KEYDASH_CONFIG_DIR overrides it.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv("KEYDASH_CONFIG_DIR")); dir != "" {
		return dir
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, appDirName)
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() Config {
	dir := Dir()
	return Config{
		Backend:        BackendLocal,
		OrganizationID: "org_demo",
		DatabasePath:   filepath.Join(dir, "keydash.sqlite"),
		LocalUserID:    "user_demo",
		PageSize:       20,
		ToastSeconds:   4,
		Theme:          "dark",
		LogEnv:         "production",
		LogPath:        filepath.Join(dir, "keydash.log"),
	}
}

// Load reads path (a missing file is fine), then .env from the working
// directory, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"KEYDASH_BACKEND":         &c.Backend,
		"KEYDASH_IDENTITY_URL":    &c.IdentityURL,
		"KEYDASH_ORGANIZATION_ID": &c.OrganizationID,
		"KEYDASH_API_TOKEN":       &c.APIToken,
		"KEYDASH_SESSION_TOKEN":   &c.SessionToken,
		"KEYDASH_SESSION_SECRET":  &c.SessionSecret,
		"KEYDASH_KEY_SERVICE_URL": &c.KeyServiceURL,
		"KEYDASH_DATABASE_PATH":   &c.DatabasePath,
		"KEYDASH_LOCAL_USER_ID":   &c.LocalUserID,
		"KEYDASH_THEME":           &c.Theme,
		"KEYDASH_LOG_ENV":         &c.LogEnv,
		"KEYDASH_LOG_PATH":        &c.LogPath,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	ints := map[string]*int{
		"KEYDASH_PAGE_SIZE":     &c.PageSize,
		"KEYDASH_TOAST_SECONDS": &c.ToastSeconds,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.ToastSeconds <= 0 {
		c.ToastSeconds = 4
	}
	if c.Theme == "" {
		c.Theme = "dark"
	}
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendHTTP:
		var missing []string
		if c.IdentityURL == "" {
			missing = append(missing, "identity_url")
		}
		if c.KeyServiceURL == "" {
			missing = append(missing, "key_service_url")
		}
		if c.SessionToken == "" {
			missing = append(missing, "session_token")
		}
		if len(missing) > 0 {
			return fmt.Errorf("http backend needs %s", strings.Join(missing, ", "))
		}
	case BackendLocal:
		if c.DatabasePath == "" {
			return errors.New("local backend needs database_path")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendHTTP, BackendLocal)
	}
	return nil
}
