// Package config loads the service configuration from TOML files and ERISA_*
// environment variables. Every section finalizes in three phases: defaults,
// environment overrides, then validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/erisa/pkg/database"
	"github.com/JaimeStill/erisa/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvErisaEnv             = "ERISA_ENV"
	EnvErisaShutdownTimeout = "ERISA_SHUTDOWN_TIMEOUT"
	EnvErisaVersion         = "ERISA_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "ERISA_DB_HOST",
	Port:            "ERISA_DB_PORT",
	Name:            "ERISA_DB_NAME",
	User:            "ERISA_DB_USER",
	Password:        "ERISA_DB_PASSWORD",
	SSLMode:         "ERISA_DB_SSL_MODE",
	MaxOpenConns:    "ERISA_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ERISA_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ERISA_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ERISA_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Enabled:          "ERISA_STORAGE_ENABLED",
	ContainerName:    "ERISA_STORAGE_CONTAINER_NAME",
	ConnectionString: "ERISA_STORAGE_CONNECTION_STRING",
	MaxListSize:      "ERISA_STORAGE_MAX_LIST_SIZE",
}

// Config is the root configuration shared by the server and the load_claims command.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	App             AppConfig       `toml:"app"`
	Auth            AuthConfig      `toml:"auth"`
	Ingest          IngestConfig    `toml:"ingest"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the ERISA_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvErisaEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads config.toml from the working directory (if present), applies the
// config.<ERISA_ENV>.toml overlay (if present), and finalizes all values.
func Load() (*Config, error) {
	return LoadDir(".")
}

// LoadDir is Load relative to dir.
func LoadDir(dir string) (*Config, error) {
	cfg := &Config{}

	base := joinDir(dir, BaseConfigFile)
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.App.Merge(&overlay.App)
	c.Auth.Merge(&overlay.Auth)
	c.Ingest.Merge(&overlay.Ingest)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.App.Finalize(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Auth.Finalize(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Ingest.Finalize(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	envString(&c.ShutdownTimeout, EnvErisaShutdownTimeout)
	envString(&c.Version, EnvErisaVersion)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvErisaEnv); env != "" {
		path := joinDir(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func joinDir(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return dir + string(os.PathSeparator) + name
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
