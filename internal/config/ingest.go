package config

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/erisa/pkg/formatting"
)

var ingestModes = []string{"append", "overwrite", "clear"}

// IngestConfig holds load_claims defaults.
type IngestConfig struct {
	DefaultMode   string `toml:"default_mode"`
	MaxFileSize   string `toml:"max_file_size"`
	Archive       bool   `toml:"archive"`
	ArchivePrefix string `toml:"archive_prefix"`
}

// MaxFileSizeBytes returns MaxFileSize in bytes.
func (c *IngestConfig) MaxFileSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxFileSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *IngestConfig) Finalize() error {
	if c.DefaultMode == "" {
		c.DefaultMode = "append"
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = "100MB"
	}
	if c.ArchivePrefix == "" {
		c.ArchivePrefix = "imports"
	}

	envString(&c.DefaultMode, "ERISA_INGEST_DEFAULT_MODE")
	envString(&c.MaxFileSize, "ERISA_INGEST_MAX_FILE_SIZE")
	envBool(&c.Archive, "ERISA_INGEST_ARCHIVE")
	envString(&c.ArchivePrefix, "ERISA_INGEST_ARCHIVE_PREFIX")

	if !slices.Contains(ingestModes, c.DefaultMode) {
		return fmt.Errorf("invalid default_mode %q: want one of %v", c.DefaultMode, ingestModes)
	}
	n, err := formatting.ParseBytes(c.MaxFileSize)
	if err != nil {
		return fmt.Errorf("invalid max_file_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *IngestConfig) Merge(overlay *IngestConfig) {
	if overlay.DefaultMode != "" {
		c.DefaultMode = overlay.DefaultMode
	}
	if overlay.MaxFileSize != "" {
		c.MaxFileSize = overlay.MaxFileSize
	}
	if overlay.Archive {
		c.Archive = true
	}
	if overlay.ArchivePrefix != "" {
		c.ArchivePrefix = overlay.ArchivePrefix
	}
}
