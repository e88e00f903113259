package config

import (
	"fmt"

	"github.com/JaimeStill/erisa/pkg/pagination"
)

var appPaginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "ERISA_APP_PAGE_SIZE",
	MaxPageSize:     "ERISA_APP_MAX_PAGE_SIZE",
}

// AppConfig holds settings for the server-rendered pages.
type AppConfig struct {
	BasePath   string            `toml:"base_path"`
	Pagination pagination.Config `toml:"pagination"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AppConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/app"
	}
	envString(&c.BasePath, "ERISA_APP_BASE_PATH")

	if err := c.Pagination.Finalize(appPaginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *AppConfig) Merge(overlay *AppConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.Pagination.Merge(&overlay.Pagination)
}
